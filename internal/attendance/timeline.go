package attendance

// fallbackDays is the length of the timeline when neither a join date nor any
// record is available.
const fallbackDays = 7

// StartSource tells which rule picked a timeline's first day.
type StartSource string

const (
	StartJoinDate       StartSource = "join_date"
	StartEarliestRecord StartSource = "earliest_record"
	StartFallbackWindow StartSource = "fallback_window"
)

// Entry is one derived day of an employee's timeline. Record is set only for
// Present entries.
type Entry struct {
	EmployeeID string  `json:"employeeId"`
	Date       Date    `json:"date"`
	Status     Status  `json:"status"`
	Record     *Record `json:"record,omitempty"`
}

// Timeline is the gap-free, ascending day list from Start through End.
type Timeline struct {
	EmployeeID  string      `json:"employeeId"`
	Start       Date        `json:"start"`
	End         Date        `json:"end"`
	StartSource StartSource `json:"startSource"`
	Entries     []Entry     `json:"entries"`
}

// Descending returns the entries newest first. The timeline is not modified.
func (t Timeline) Descending() []Entry {
	out := make([]Entry, len(t.Entries))
	for i, e := range t.Entries {
		out[len(t.Entries)-1-i] = e
	}
	return out
}

// Counts returns the Present and Absent entries within [from, to].
// A zero bound is open.
func (t Timeline) Counts(from, to Date) (present, absent int) {
	for _, e := range t.Entries {
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}
		if e.Status == StatusPresent {
			present++
		} else {
			absent++
		}
	}
	return present, absent
}

// Entry returns the entry for d, if the timeline covers it.
func (t Timeline) Entry(d Date) (Entry, bool) {
	if len(t.Entries) == 0 || d.Before(t.Start) || d.After(t.End) {
		return Entry{}, false
	}
	return t.Entries[t.Start.DaysUntil(d)], true
}

// Reconstruct builds an employee's timeline from join date (or fallback)
// through today inclusive. Each day is Present when a record exists for it and
// Absent otherwise. Records of other employees or outside the range are
// ignored, as are join dates and records before MinDate; for a duplicated
// date the earliest check-in wins.
func Reconstruct(employeeID string, joinDate Date, records []Record, today Date) Timeline {
	tl := Timeline{EmployeeID: employeeID, End: today}

	byDate := make(map[Date]Record, len(records))
	var earliest Date
	for _, r := range records {
		if r.EmployeeID != employeeID || r.Status != StatusPresent || r.Date.Before(MinDate) {
			continue
		}
		if prev, ok := byDate[r.Date]; !ok || earlierCheckIn(r, prev) {
			byDate[r.Date] = r
		}
		if earliest.IsZero() || r.Date.Before(earliest) {
			earliest = r.Date
		}
	}

	switch {
	case !joinDate.Before(MinDate):
		tl.Start, tl.StartSource = joinDate, StartJoinDate
	case !earliest.IsZero() && !earliest.After(today):
		tl.Start, tl.StartSource = earliest, StartEarliestRecord
	default:
		tl.Start, tl.StartSource = today.AddDays(-(fallbackDays - 1)), StartFallbackWindow
	}

	if tl.Start.After(today) {
		tl.Entries = []Entry{}
		return tl
	}

	tl.Entries = make([]Entry, 0, tl.Start.DaysUntil(today)+1)
	for d := tl.Start; !d.After(today); d = d.AddDays(1) {
		e := Entry{EmployeeID: employeeID, Date: d, Status: StatusAbsent}
		if r, ok := byDate[d]; ok {
			rec := r
			e.Status = StatusPresent
			e.Record = &rec
		}
		tl.Entries = append(tl.Entries, e)
	}
	return tl
}

// earlierCheckIn reports whether a was checked in before b. A record without
// a time loses to one with a time.
func earlierCheckIn(a, b Record) bool {
	switch {
	case a.Time == nil:
		return false
	case b.Time == nil:
		return true
	case a.Time.secs != b.Time.secs:
		return a.Time.secs < b.Time.secs
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
