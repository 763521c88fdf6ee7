// Package matcher identifies a face descriptor against the enrolled gallery.
package matcher

import (
	"math"
	"sync"

	"go.uber.org/zap"
)

// DefaultThreshold is the largest distance still accepted as the same person.
const DefaultThreshold = 0.6

// LabeledDescriptor is one enrolled embedding of an employee.
type LabeledDescriptor struct {
	EmployeeID string    `json:"employeeId"`
	Vector     []float32 `json:"vector"`
}

// Gallery is a versioned snapshot of every enrolled descriptor.
type Gallery struct {
	Version     int64               `json:"version"`
	Descriptors []LabeledDescriptor `json:"descriptors"`
}

// Match is an accepted identification.
type Match struct {
	EmployeeID string  `json:"employeeId"`
	Distance   float64 `json:"distance"`
}

// Distance is the Euclidean distance between a and b. ok is false when the
// vectors have different lengths or are empty.
func Distance(a, b []float32) (d float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum), true
}

// Best scans descriptors and returns the employee with the smallest distance
// to query, taking the minimum over each employee's descriptors. The match is
// accepted when that distance is <= threshold. Ties go to the smallest
// employee id.
func Best(query []float32, descriptors []LabeledDescriptor, threshold float64) (Match, bool) {
	best := Match{Distance: math.Inf(1)}
	found := false
	for _, d := range descriptors {
		dist, ok := Distance(query, d.Vector)
		if !ok || d.EmployeeID == "" {
			continue
		}
		if !found || dist < best.Distance || (dist == best.Distance && d.EmployeeID < best.EmployeeID) {
			best = Match{EmployeeID: d.EmployeeID, Distance: dist}
			found = true
		}
	}
	if !found || best.Distance > threshold {
		return Match{}, false
	}
	return best, true
}

// Index narrows the gallery to the descriptors worth scoring exactly.
type Index interface {
	Build(descriptors []LabeledDescriptor)
	Candidates(query []float32) []LabeledDescriptor
	Len() int
}

// Matcher holds the loaded gallery and answers Match calls. It is safe for
// concurrent use; Load swaps the gallery atomically.
type Matcher struct {
	mu        sync.RWMutex
	threshold float64
	index     Index
	version   int64
	log       *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithIndex replaces the default exact index.
func WithIndex(idx Index) Option {
	return func(m *Matcher) {
		if idx != nil {
			m.index = idx
		}
	}
}

// WithLogger sets the logger used on gallery reloads.
func WithLogger(log *zap.Logger) Option {
	return func(m *Matcher) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates a matcher. A non-positive threshold means DefaultThreshold.
func New(threshold float64, opts ...Option) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	m := &Matcher{
		threshold: threshold,
		index:     &ExactIndex{},
		version:   -1,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load replaces the gallery.
func (m *Matcher) Load(g Gallery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index.Build(g.Descriptors)
	m.version = g.Version
	galleryDescriptors.Set(float64(m.index.Len()))
	m.log.Info("gallery loaded",
		zap.Int64("version", g.Version),
		zap.Int("descriptors", m.index.Len()),
	)
}

// Version of the loaded gallery, -1 before the first Load.
func (m *Matcher) Version() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Threshold returns the maximum distance accepted as a match.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match identifies query against the loaded gallery.
func (m *Matcher) Match(query []float32) (Match, bool) {
	m.mu.RLock()
	candidates := m.index.Candidates(query)
	m.mu.RUnlock()

	match, ok := Best(query, candidates, m.threshold)
	if ok {
		matchResults.WithLabelValues("match").Inc()
	} else {
		matchResults.WithLabelValues("unknown").Inc()
	}
	return match, ok
}
