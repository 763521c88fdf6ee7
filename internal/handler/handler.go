// Package handler exposes the HTTP API over gin.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffattend/internal/attendance"
	"staffattend/internal/employee"
	"staffattend/internal/report"
)

// Handler serves the /v1 API.
type Handler struct {
	attendance *attendance.Service
	employees  *employee.Service
	reports    *report.Service
	log        *zap.Logger
}

// New builds the handler and registers the request validators with gin.
func New(att *attendance.Service, emps *employee.Service, reports *report.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	registerValidators()
	return &Handler{attendance: att, employees: emps, reports: reports, log: log}
}

// Register mounts every route under r.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")

	v1.GET("/attendance", h.listAttendance)
	v1.POST("/attendance", h.recordAttendance)

	v1.GET("/employees", h.listEmployees)
	v1.POST("/employees", h.createEmployee)
	v1.PUT("/employees/:code", h.updateEmployee)
	v1.DELETE("/employees/:code", h.deleteEmployee)
	v1.GET("/employees/:code/timeline", h.employeeTimeline)
	v1.GET("/employees/:code/monthly", h.employeeMonthly)

	v1.GET("/gallery", h.gallery)
	v1.GET("/gallery/version", h.galleryVersion)

	v1.GET("/stats/today", h.statsToday)
	v1.GET("/stats/window", h.statsWindow)
	v1.GET("/reports/attendance.xlsx", h.exportXLSX)
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, attendance.ErrInvalidRequest), errors.Is(err, employee.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, attendance.ErrUnknownEmployee), errors.Is(err, employee.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, employee.ErrDuplicateCode):
		status = http.StatusConflict
	case errors.Is(err, attendance.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
