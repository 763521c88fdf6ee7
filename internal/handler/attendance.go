package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"staffattend/internal/attendance"
)

type recordAttendanceRequest struct {
	EmployeeID string `json:"employeeId" binding:"required"`
	Date       string `json:"date" binding:"required,calendar_date"`
	Time       string `json:"time" binding:"omitempty,clock_time"`
	Status     string `json:"status" binding:"omitempty,recordable_status"`
	Photo      string `json:"photo"`
}

func (req recordAttendanceRequest) toDomain() (attendance.Request, error) {
	out := attendance.Request{EmployeeID: strings.TrimSpace(req.EmployeeID), Photo: req.Photo}
	d, err := attendance.ParseDate(req.Date)
	if err != nil {
		return attendance.Request{}, err
	}
	out.Date = d
	if req.Time != "" {
		t, err := attendance.ParseTimeOfDay(req.Time)
		if err != nil {
			return attendance.Request{}, err
		}
		out.Time = &t
	}
	if out.Status, err = attendance.ParseStatus(req.Status); err != nil {
		return attendance.Request{}, err
	}
	return out, nil
}

func (h *Handler) recordAttendance(c *gin.Context) {
	var body recordAttendanceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, FormatBindingError(err))
		return
	}
	req, err := body.toDomain()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.attendance.Record(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Outcome == attendance.AlreadyMarked {
		c.JSON(http.StatusOK, gin.H{"message": "Already marked"})
		return
	}
	c.JSON(http.StatusCreated, res.Record)
}

func (h *Handler) listAttendance(c *gin.Context) {
	var q attendance.Query
	q.EmployeeID = strings.TrimSpace(c.Query("employeeId"))
	for param, dst := range map[string]*attendance.Date{"from": &q.From, "to": &q.To} {
		if v := c.Query(param); v != "" {
			d, err := attendance.ParseDate(v)
			if err != nil {
				badRequest(c, param+": "+err.Error())
				return
			}
			*dst = d
		}
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		q.Limit = n
	}

	records, err := h.attendance.List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
