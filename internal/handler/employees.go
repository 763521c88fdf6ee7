package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"staffattend/internal/attendance"
	"staffattend/internal/employee"
)

type employeeResponse struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Department      string          `json:"department"`
	JoinDate        attendance.Date `json:"joinDate"`
	Active          bool            `json:"active"`
	HasPhoto        bool            `json:"hasPhoto"`
	DescriptorCount int             `json:"descriptorCount"`
}

func toEmployeeResponse(e employee.Employee) employeeResponse {
	return employeeResponse{
		ID:              e.ID,
		Code:            e.Code,
		Name:            e.Name,
		Department:      e.Department,
		JoinDate:        e.JoinDate,
		Active:          e.Active,
		HasPhoto:        e.HasPhoto(),
		DescriptorCount: e.DescriptorCount,
	}
}

type createEmployeeRequest struct {
	Code       string `json:"code" binding:"required,max=64"`
	Name       string `json:"name" binding:"required,max=200"`
	Department string `json:"department" binding:"max=100"`
	JoinDate   string `json:"joinDate" binding:"omitempty,calendar_date"`
	Active     *bool  `json:"active"`
	Photo      string `json:"photo"`
}

type updateEmployeeRequest struct {
	Code       string  `json:"code" binding:"max=64"`
	Name       string  `json:"name" binding:"max=200"`
	Department *string `json:"department"`
	JoinDate   *string `json:"joinDate" binding:"omitempty,calendar_date"`
	Active     *bool   `json:"active"`
	Photo      string  `json:"photo"`
}

// parseJoinDate accepts an empty value as "no join date".
func parseJoinDate(s string) (attendance.Date, error) {
	if s == "" {
		return attendance.Date{}, nil
	}
	return attendance.ParseDate(s)
}

func (h *Handler) listEmployees(c *gin.Context) {
	f := employee.Filter{Department: c.Query("department")}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "active must be a boolean")
			return
		}
		f.ActiveOnly = active
	}
	emps, err := h.employees.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]employeeResponse, 0, len(emps))
	for _, e := range emps {
		out = append(out, toEmployeeResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"employees": out})
}

func (h *Handler) createEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, FormatBindingError(err))
		return
	}
	join, err := parseJoinDate(req.JoinDate)
	if err != nil {
		badRequest(c, "joinDate: "+err.Error())
		return
	}
	e := employee.Employee{
		Code:       req.Code,
		Name:       req.Name,
		Department: req.Department,
		JoinDate:   join,
		Active:     req.Active == nil || *req.Active,
		Photo:      req.Photo,
	}
	out, err := h.employees.Create(c.Request.Context(), e)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEmployeeResponse(out))
}

func (h *Handler) updateEmployee(c *gin.Context) {
	var req updateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, FormatBindingError(err))
		return
	}
	code := c.Param("code")
	cur, err := h.employees.Get(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err)
		return
	}

	e := employee.Employee{
		Code:       req.Code,
		Name:       req.Name,
		Department: cur.Department,
		JoinDate:   cur.JoinDate,
		Active:     cur.Active,
		Photo:      req.Photo,
	}
	if req.Department != nil {
		e.Department = *req.Department
	}
	if req.JoinDate != nil {
		if e.JoinDate, err = parseJoinDate(*req.JoinDate); err != nil {
			badRequest(c, "joinDate: "+err.Error())
			return
		}
	}
	if req.Active != nil {
		e.Active = *req.Active
	}

	out, err := h.employees.Update(c.Request.Context(), cur.Code, e)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(out))
}

func (h *Handler) deleteEmployee(c *gin.Context) {
	if err := h.employees.Delete(c.Request.Context(), c.Param("code")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) gallery(c *gin.Context) {
	g, err := h.employees.Gallery(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) galleryVersion(c *gin.Context) {
	v, err := h.employees.GalleryVersion(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": v})
}
