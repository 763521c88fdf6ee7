package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Status of a day for an employee. Only StatusPresent is ever persisted;
// StatusAbsent is derived by the timeline reconstruction.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// ParseStatus accepts the write-side status. Anything but "Present" is rejected.
func ParseStatus(s string) (Status, error) {
	if s == "" || strings.EqualFold(s, string(StatusPresent)) {
		return StatusPresent, nil
	}
	return "", fmt.Errorf("unsupported status %q: only %q can be recorded", s, StatusPresent)
}

// Record is a persisted attendance row.
type Record struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employeeId"`
	Date       Date       `json:"date"`
	Time       *TimeOfDay `json:"time"`
	Status     Status     `json:"status"`
	Photo      string     `json:"photo,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Request is a validated write request. Time is accepted for format checks
// only: check-in times are always stamped by the store.
type Request struct {
	EmployeeID string
	Date       Date
	Time       *TimeOfDay
	Status     Status
	Photo      string
}

// NewRecord is what the service hands to a repository.
type NewRecord struct {
	EmployeeID string
	Date       Date
	Photo      string
}

// Outcome of a record attempt.
type Outcome string

const (
	Created       Outcome = "created"
	AlreadyMarked Outcome = "already_marked"
)

// Result of Service.Record. Record is nil for AlreadyMarked.
type Result struct {
	Outcome Outcome
	Record  *Record
}

// Query filters attendance listings. Zero fields are ignored.
type Query struct {
	EmployeeID  string
	EmployeeIDs []string
	From        Date
	To          Date
	Limit       int
}

// Matches reports whether r satisfies q. Used by the in-memory store.
func (q Query) Matches(r Record) bool {
	if q.EmployeeID != "" && r.EmployeeID != q.EmployeeID {
		return false
	}
	if len(q.EmployeeIDs) > 0 {
		found := false
		for _, id := range q.EmployeeIDs {
			if id == r.EmployeeID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !q.From.IsZero() && r.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && r.Date.After(q.To) {
		return false
	}
	return true
}
