package attendance

import (
	"math"
	"time"
)

// Window is an inclusive range of calendar days.
type Window struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// Day is the single-day window d..d.
func Day(d Date) Window { return Window{From: d, To: d} }

// Trailing is the n days ending today. n < 1 is treated as 1.
func Trailing(n int, today Date) Window {
	if n < 1 {
		n = 1
	}
	return Window{From: today.AddDays(-(n - 1)), To: today}
}

// Month covers the whole calendar month.
func Month(year int, month time.Month) Window {
	first := NewDate(year, month, 1)
	return Window{From: first, To: NewDate(year, month+1, 1).AddDays(-1)}
}

// Days is the number of days in w, 0 when From is after To.
func (w Window) Days() int {
	if w.From.After(w.To) {
		return 0
	}
	return w.From.DaysUntil(w.To) + 1
}

// Contains reports whether d falls within w.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.From) && !d.After(w.To)
}

// SingleDay reports whether w covers exactly one day.
func (w Window) SingleDay() bool { return w.From == w.To }

// DailyBucket holds the counts for one day of a window.
type DailyBucket struct {
	Date    Date `json:"date"`
	Present int  `json:"present"`
	Absent  int  `json:"absent"`
}

// Summary is the aggregate of a set of timelines over a window.
type Summary struct {
	Window         Window        `json:"window"`
	TotalEmployees int           `json:"totalEmployees"`
	PresentCount   int           `json:"presentCount"`
	AbsentCount    int           `json:"absentCount"`
	Percent        int           `json:"percent"`
	DailyBuckets   []DailyBucket `json:"dailyBuckets"`
}

// Aggregate counts Present and Absent entries of timelines inside w.
//
// For a single-day window the counts are per employee: present is the number
// of distinct employees present that day and absent is the rest of the
// population. For longer windows they are entry counts. filter limits the
// population to the given employee ids; nil means everybody.
func Aggregate(timelines []Timeline, w Window, filter []string) Summary {
	var allowed map[string]struct{}
	if filter != nil {
		allowed = make(map[string]struct{}, len(filter))
		for _, id := range filter {
			allowed[id] = struct{}{}
		}
	}

	days := w.Days()
	s := Summary{Window: w, DailyBuckets: make([]DailyBucket, days)}
	for i := range s.DailyBuckets {
		s.DailyBuckets[i].Date = w.From.AddDays(i)
	}

	seen := make(map[string]struct{}, len(timelines))
	presentOnDay := make(map[string]struct{})
	entries := 0
	for _, tl := range timelines {
		if allowed != nil {
			if _, ok := allowed[tl.EmployeeID]; !ok {
				continue
			}
		}
		seen[tl.EmployeeID] = struct{}{}
		for _, e := range tl.Entries {
			if !w.Contains(e.Date) {
				continue
			}
			entries++
			b := &s.DailyBuckets[w.From.DaysUntil(e.Date)]
			if e.Status == StatusPresent {
				b.Present++
				s.PresentCount++
				presentOnDay[tl.EmployeeID] = struct{}{}
			} else {
				b.Absent++
				s.AbsentCount++
			}
		}
	}
	s.TotalEmployees = len(seen)

	if w.SingleDay() && days == 1 {
		s.PresentCount = len(presentOnDay)
		s.AbsentCount = s.TotalEmployees - s.PresentCount
		s.DailyBuckets[0].Present = s.PresentCount
		s.DailyBuckets[0].Absent = s.AbsentCount
		s.Percent = Percent(s.PresentCount, s.TotalEmployees)
		return s
	}
	s.Percent = Percent(s.PresentCount, entries)
	return s
}

// Percent is round(part/whole*100), and 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// MonthlySummary is the working-days view of one employee's month.
type MonthlySummary struct {
	EmployeeID  string     `json:"employeeId"`
	Year        int        `json:"year"`
	Month       time.Month `json:"month"`
	WorkingDays int        `json:"workingDays"`
	Present     int        `json:"present"`
	Absent      int        `json:"absent"`
	Percent     int        `json:"percent"`
}

// WorkingDays counts Monday to Friday days in w.
func WorkingDays(w Window) int {
	n := 0
	for d := w.From; !d.After(w.To); d = d.AddDays(1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// Monthly summarizes the month against its working days. Absent is the
// working days not covered by a Present record, floored at zero.
func Monthly(employeeID string, records []Record, year int, month time.Month) MonthlySummary {
	w := Month(year, month)
	present := make(map[Date]struct{})
	for _, r := range records {
		if r.EmployeeID == employeeID && r.Status == StatusPresent && w.Contains(r.Date) {
			present[r.Date] = struct{}{}
		}
	}
	m := MonthlySummary{
		EmployeeID:  employeeID,
		Year:        year,
		Month:       month,
		WorkingDays: WorkingDays(w),
		Present:     len(present),
	}
	m.Absent = max(m.WorkingDays-m.Present, 0)
	m.Percent = Percent(m.Present, m.WorkingDays)
	return m
}

// LateEntries returns the records checked in strictly after cutoff.
func LateEntries(records []Record, cutoff TimeOfDay) []Record {
	var late []Record
	for _, r := range records {
		if r.Time != nil && r.Time.After(cutoff) {
			late = append(late, r)
		}
	}
	return late
}
