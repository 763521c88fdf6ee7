package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"staffattend/internal/attendance"
	"staffattend/internal/employee"
)

const (
	sheetDaily     = "Daily"
	sheetEmployees = "Employees"
	sheetRecords   = "Records"
)

// Export writes an XLSX workbook covering the trailing days ending today:
// per-day counts, per-employee totals and the raw records.
func (s *Service) Export(ctx context.Context, w io.Writer, days int) error {
	today := s.attendance.Today()
	win := attendance.Trailing(days, today)

	emps, timelines, records, err := s.population(ctx, employee.Filter{ActiveOnly: true}, today)
	if err != nil {
		return err
	}
	sum := attendance.Aggregate(timelines, win, nil)

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", sheetDaily); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	rows := [][]any{{"Date", "Present", "Absent"}}
	for _, b := range sum.DailyBuckets {
		rows = append(rows, []any{b.Date.String(), b.Present, b.Absent})
	}
	rows = append(rows, []any{"Total", sum.PresentCount, sum.AbsentCount}, []any{"Percent", sum.Percent})
	if err := writeSheet(f, sheetDaily, rows, header); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetEmployees); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	byCode := make(map[string]employee.Employee, len(emps))
	for _, e := range emps {
		byCode[e.Code] = e
	}
	rows = [][]any{{"Code", "Name", "Department", "Join date", "Present", "Absent", "Percent"}}
	for _, tl := range timelines {
		p, a := tl.Counts(win.From, win.To)
		e := byCode[tl.EmployeeID]
		rows = append(rows, []any{e.Code, e.Name, e.Department, e.JoinDate.String(), p, a, attendance.Percent(p, p+a)})
	}
	if err := writeSheet(f, sheetEmployees, rows, header); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetRecords); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	rows = [][]any{{"Date", "Time", "Employee", "Status"}}
	for _, r := range records {
		if !win.Contains(r.Date) {
			continue
		}
		t := ""
		if r.Time != nil {
			t = r.Time.String()
		}
		rows = append(rows, []any{r.Date.String(), t, r.EmployeeID, string(r.Status)})
	}
	if err := writeSheet(f, sheetRecords, rows, header); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "G", 14)
}
