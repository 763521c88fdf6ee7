package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"staffattend/internal/attendance"
)

const (
	defaultWindowDays = 7
	defaultExportDays = 30
	maxWindowDays     = 366
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type timelineResponse struct {
	Employee      employeeResponse       `json:"employee"`
	Start         attendance.Date        `json:"start"`
	End           attendance.Date        `json:"end"`
	StartSource   attendance.StartSource `json:"startSource"`
	Order         string                 `json:"order"`
	Entries       []attendance.Entry     `json:"entries"`
	RecentWindow  attendance.Window      `json:"recentWindow"`
	RecentPresent int                    `json:"recentPresent"`
	RecentAbsent  int                    `json:"recentAbsent"`
}

func (h *Handler) employeeTimeline(c *gin.Context) {
	order := c.DefaultQuery("order", "desc")
	if order != "asc" && order != "desc" {
		badRequest(c, "order must be asc or desc")
		return
	}
	view, err := h.reports.EmployeeTimeline(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	entries := view.Timeline.Entries
	if order == "desc" {
		entries = view.Timeline.Descending()
	}
	c.JSON(http.StatusOK, timelineResponse{
		Employee:      toEmployeeResponse(view.Employee),
		Start:         view.Timeline.Start,
		End:           view.Timeline.End,
		StartSource:   view.Timeline.StartSource,
		Order:         order,
		Entries:       entries,
		RecentWindow:  view.Recent,
		RecentPresent: view.RecentPresent,
		RecentAbsent:  view.RecentAbsent,
	})
}

func (h *Handler) employeeMonthly(c *gin.Context) {
	var (
		year  int
		month time.Month
	)
	if v := c.Query("month"); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			badRequest(c, "month must be YYYY-MM")
			return
		}
		year, month = t.Year(), t.Month()
	} else {
		today := h.attendance.Today()
		year, month = today.Year(), today.Month()
	}
	sum, err := h.reports.Monthly(c.Request.Context(), c.Param("code"), year, month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) statsToday(c *gin.Context) {
	view, err := h.reports.Today(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) statsWindow(c *gin.Context) {
	days, ok := daysParam(c, defaultWindowDays)
	if !ok {
		return
	}
	sum, err := h.reports.Window(c.Request.Context(), days, c.Query("department"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) exportXLSX(c *gin.Context) {
	days, ok := daysParam(c, defaultExportDays)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.reports.Export(c.Request.Context(), &buf, days); err != nil {
		h.fail(c, err)
		return
	}
	name := fmt.Sprintf("attendance-%s.xlsx", h.attendance.Today())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func daysParam(c *gin.Context, def int) (int, bool) {
	v := c.Query("days")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxWindowDays {
		badRequest(c, fmt.Sprintf("days must be between 1 and %d", maxWindowDays))
		return 0, false
	}
	return n, true
}
