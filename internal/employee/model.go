// Package employee is the registry of people the stations can recognize.
package employee

import (
	"errors"
	"strings"
	"time"

	"staffattend/internal/attendance"
)

var (
	ErrNotFound      = errors.New("employee not found")
	ErrDuplicateCode = errors.New("employee code already exists")
	ErrInvalid       = errors.New("invalid employee")
)

// Employee is a registry entry. Code is the identifier attendance records
// and descriptors refer to.
type Employee struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Department      string          `json:"department"`
	JoinDate        attendance.Date `json:"joinDate"`
	Active          bool            `json:"active"`
	Photo           string          `json:"-"`
	DescriptorCount int             `json:"descriptorCount"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (e Employee) HasPhoto() bool { return e.Photo != "" }

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	Department string
	ActiveOnly bool
}

func (f Filter) matches(e Employee) bool {
	if f.Department != "" && !strings.EqualFold(e.Department, f.Department) {
		return false
	}
	if f.ActiveOnly && !e.Active {
		return false
	}
	return true
}

// Codes returns the codes of employees in order.
func Codes(emps []Employee) []string {
	out := make([]string, len(emps))
	for i, e := range emps {
		out[i] = e.Code
	}
	return out
}
