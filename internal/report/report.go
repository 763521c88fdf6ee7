// Package report builds the read-side views: employee timelines, daily and
// windowed statistics, monthly summaries and spreadsheet exports.
package report

import (
	"context"
	"fmt"
	"time"

	"staffattend/internal/attendance"
	"staffattend/internal/employee"
)

// recentDays is the span of the "last 30 days" counts on a timeline view.
const recentDays = 30

// Employees lists the registry.
type Employees interface {
	List(ctx context.Context, f employee.Filter) ([]employee.Employee, error)
	Get(ctx context.Context, code string) (employee.Employee, error)
}

// Attendance reads records and knows the current day.
type Attendance interface {
	List(ctx context.Context, q attendance.Query) ([]attendance.Record, error)
	Today() attendance.Date
}

type Service struct {
	employees  Employees
	attendance Attendance
	lateAfter  attendance.TimeOfDay
}

// NewService builds the report views. Check-ins after lateAfter count as late.
func NewService(emps Employees, att Attendance, lateAfter attendance.TimeOfDay) *Service {
	return &Service{employees: emps, attendance: att, lateAfter: lateAfter}
}

// TimelineView is an employee's reconstructed history.
type TimelineView struct {
	Employee      employee.Employee   `json:"employee"`
	Timeline      attendance.Timeline `json:"timeline"`
	Recent        attendance.Window   `json:"recentWindow"`
	RecentPresent int                 `json:"recentPresent"`
	RecentAbsent  int                 `json:"recentAbsent"`
}

// EmployeeTimeline reconstructs the timeline of one employee.
func (s *Service) EmployeeTimeline(ctx context.Context, code string) (TimelineView, error) {
	emp, err := s.employees.Get(ctx, code)
	if err != nil {
		return TimelineView{}, err
	}
	today := s.attendance.Today()
	records, err := s.attendance.List(ctx, attendance.Query{EmployeeID: emp.Code, To: today})
	if err != nil {
		return TimelineView{}, err
	}
	tl := attendance.Reconstruct(emp.Code, emp.JoinDate, records, today)
	recent := attendance.Trailing(recentDays, today)
	p, a := tl.Counts(recent.From, recent.To)
	return TimelineView{
		Employee:      emp,
		Timeline:      tl,
		Recent:        recent,
		RecentPresent: p,
		RecentAbsent:  a,
	}, nil
}

// TodayView is the dashboard summary of the current day.
type TodayView struct {
	Date           attendance.Date      `json:"date"`
	TotalEmployees int                  `json:"totalEmployees"`
	PresentToday   int                  `json:"presentToday"`
	AbsentToday    int                  `json:"absentToday"`
	Percent        int                  `json:"percent"`
	LateAfter      attendance.TimeOfDay `json:"lateAfter"`
	LateEntries    []attendance.Record  `json:"lateEntries"`
}

// Today summarizes the current day across all active employees.
func (s *Service) Today(ctx context.Context) (TodayView, error) {
	today := s.attendance.Today()
	_, timelines, records, err := s.population(ctx, employee.Filter{ActiveOnly: true}, today)
	if err != nil {
		return TodayView{}, err
	}
	sum := attendance.Aggregate(timelines, attendance.Day(today), nil)

	var todays []attendance.Record
	for _, r := range records {
		if r.Date == today {
			todays = append(todays, r)
		}
	}
	late := attendance.LateEntries(todays, s.lateAfter)
	if late == nil {
		late = []attendance.Record{}
	}
	return TodayView{
		Date:           today,
		TotalEmployees: sum.TotalEmployees,
		PresentToday:   sum.PresentCount,
		AbsentToday:    sum.AbsentCount,
		Percent:        sum.Percent,
		LateAfter:      s.lateAfter,
		LateEntries:    late,
	}, nil
}

// Window aggregates the trailing days ending today, optionally for one
// department.
func (s *Service) Window(ctx context.Context, days int, department string) (attendance.Summary, error) {
	today := s.attendance.Today()
	_, timelines, _, err := s.population(ctx, employee.Filter{ActiveOnly: true, Department: department}, today)
	if err != nil {
		return attendance.Summary{}, err
	}
	return attendance.Aggregate(timelines, attendance.Trailing(days, today), nil), nil
}

// Monthly returns the working-days summary of an employee's month.
func (s *Service) Monthly(ctx context.Context, code string, year int, month time.Month) (attendance.MonthlySummary, error) {
	if month < time.January || month > time.December {
		return attendance.MonthlySummary{}, fmt.Errorf("%w: month %d", attendance.ErrInvalidRequest, month)
	}
	emp, err := s.employees.Get(ctx, code)
	if err != nil {
		return attendance.MonthlySummary{}, err
	}
	w := attendance.Month(year, month)
	records, err := s.attendance.List(ctx, attendance.Query{EmployeeID: emp.Code, From: w.From, To: w.To})
	if err != nil {
		return attendance.MonthlySummary{}, err
	}
	return attendance.Monthly(emp.Code, records, year, month), nil
}

// population reconstructs the timelines of every employee matching f.
func (s *Service) population(ctx context.Context, f employee.Filter, today attendance.Date) ([]employee.Employee, []attendance.Timeline, []attendance.Record, error) {
	emps, err := s.employees.List(ctx, f)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(emps) == 0 {
		return nil, nil, nil, nil
	}
	records, err := s.attendance.List(ctx, attendance.Query{EmployeeIDs: employee.Codes(emps), To: today})
	if err != nil {
		return nil, nil, nil, err
	}

	byEmployee := make(map[string][]attendance.Record, len(emps))
	for _, r := range records {
		byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
	}
	timelines := make([]attendance.Timeline, 0, len(emps))
	for _, e := range emps {
		timelines = append(timelines, attendance.Reconstruct(e.Code, e.JoinDate, byEmployee[e.Code], today))
	}
	return emps, timelines, records, nil
}
