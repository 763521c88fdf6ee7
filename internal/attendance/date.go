package attendance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	timeLayout    = "15:04:05"
	secondsPerDay = 24 * 60 * 60
)

// MinDate is the earliest day the service accepts for join dates and
// attendance records. Older values are data-entry mistakes.
var MinDate = NewDate(1900, time.January, 1)

// Date is a calendar day with no time-of-day or zone. The zero value means
// "no date" and is what a missing or unparsable join date turns into.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate normalizes its arguments the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// ParseDate parses YYYY-MM-DD. An RFC 3339 timestamp is accepted too and
// truncated to its date part, which is how legacy rows stored join dates.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("empty date")
	}
	if len(s) > len(dateLayout) && s[len(dateLayout)] == 'T' {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// ParseDateOrZero is ParseDate that swallows the error.
func ParseDateOrZero(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		return Date{}
	}
	return d
}

// IsZero reports whether d is the "no date" value.
func (d Date) IsZero() bool { return d == Date{} }

// Year returns the year of d.
func (d Date) Year() int { return d.year }

// Month returns the month of d.
func (d Date) Month() time.Month { return d.month }

// Day returns the day of the month of d.
func (d Date) Day() int { return d.day }

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n days; n may be negative.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// After reports whether d is later than o.
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.year != o.year:
		return cmpInt(d.year, o.year)
	case d.month != o.month:
		return cmpInt(int(d.month), int(o.month))
	default:
		return cmpInt(d.day, o.day)
	}
}

// DaysUntil returns the number of days from d to o; negative when o is earlier.
// It works on Unix day numbers, so spans beyond time.Duration's range are exact.
func (d Date) DaysUntil(o Date) int {
	return int((o.Time().Unix() - d.Time().Unix()) / secondsPerDay)
}

// String formats d as YYYY-MM-DD, or "" for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

// MarshalJSON encodes d as "YYYY-MM-DD", and the zero value as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, "" or a date ParseDate understands.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value sends the date as text; Postgres casts it to DATE.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan reads a DATE column or its text form. Unparsable text scans as zero.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = DateOf(v)
	case string:
		*d = ParseDateOrZero(v)
	case []byte:
		*d = ParseDateOrZero(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

// TimeOfDay is a wall-clock time with second precision, stored as seconds
// since midnight.
type TimeOfDay struct {
	secs int
}

// NewTimeOfDay builds a time of day from its clock fields.
func NewTimeOfDay(hour, min, sec int) TimeOfDay {
	return TimeOfDay{secs: hour*3600 + min*60 + sec}
}

// TimeOfDayOf returns the wall-clock part of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// ParseTimeOfDay parses HH:MM:SS (HH:MM is accepted with zero seconds).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	layout := timeLayout
	if len(s) == len("15:04") {
		layout = "15:04"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: want HH:MM:SS", s)
	}
	return TimeOfDayOf(t), nil
}

// Hour returns the hour of t.
func (t TimeOfDay) Hour() int { return t.secs / 3600 }

// Minute returns the minute of t.
func (t TimeOfDay) Minute() int { return t.secs % 3600 / 60 }

// Second returns the second of t.
func (t TimeOfDay) Second() int { return t.secs % 60 }

// After reports whether t is later in the day than o.
func (t TimeOfDay) After(o TimeOfDay) bool { return t.secs > o.secs }

// String formats t as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// MarshalJSON encodes t as "HH:MM:SS".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts "HH:MM:SS" or "HH:MM".
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
