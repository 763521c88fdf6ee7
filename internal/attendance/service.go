package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Repository is the persistence contract of the recorder.
//
// InsertPresent must check-and-insert atomically. The bool is false when a
// Present row for (EmployeeID, Date) already exists, and in that case nothing
// is written. Implementations stamp the check-in time themselves.
type Repository interface {
	InsertPresent(ctx context.Context, rec NewRecord) (Record, bool, error)
	List(ctx context.Context, q Query) ([]Record, error)
}

// Service is the attendance recorder: the only write path for records.
type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
	log  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for duplicate and failure messages.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a recorder backed by a repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		loc:  time.UTC,
		now:  time.Now,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current calendar day in the service's zone.
func (s *Service) Today() Date {
	return DateOf(s.now().In(s.loc))
}

// Location returns the zone that defines "today".
func (s *Service) Location() *time.Location { return s.loc }

// Record stores a Present record for (EmployeeID, Date) unless one exists.
// A repeated call for the same pair returns AlreadyMarked without writing.
func (s *Service) Record(ctx context.Context, req Request) (Result, error) {
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if err := s.validate(req); err != nil {
		recordsTotal.WithLabelValues("invalid").Inc()
		return Result{}, err
	}

	rec, created, err := s.repo.InsertPresent(ctx, NewRecord{
		EmployeeID: req.EmployeeID,
		Date:       req.Date,
		Photo:      req.Photo,
	})
	if err != nil {
		if errors.Is(err, ErrUnknownEmployee) {
			recordsTotal.WithLabelValues("invalid").Inc()
			return Result{}, err
		}
		recordsTotal.WithLabelValues("failed").Inc()
		s.log.Warn("record attendance failed",
			zap.String("employee_id", req.EmployeeID),
			zap.Stringer("date", req.Date),
			zap.Error(err),
		)
		return Result{}, err
	}

	if !created {
		recordsTotal.WithLabelValues(string(AlreadyMarked)).Inc()
		s.log.Debug("attendance already marked",
			zap.String("employee_id", req.EmployeeID),
			zap.Stringer("date", req.Date),
		)
		return Result{Outcome: AlreadyMarked}, nil
	}

	recordsTotal.WithLabelValues(string(Created)).Inc()
	s.log.Info("attendance recorded",
		zap.String("employee_id", rec.EmployeeID),
		zap.Stringer("date", rec.Date),
		zap.String("record_id", rec.ID),
	)
	return Result{Outcome: Created, Record: &rec}, nil
}

// List returns records matching q, newest first by (date, time).
func (s *Service) List(ctx context.Context, q Query) ([]Record, error) {
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidRequest, q.From, q.To)
	}
	return s.repo.List(ctx, q)
}

func (s *Service) validate(req Request) error {
	if req.EmployeeID == "" {
		return fmt.Errorf("%w: employee id required", ErrInvalidRequest)
	}
	if req.Date.IsZero() {
		return fmt.Errorf("%w: date required", ErrInvalidRequest)
	}
	if req.Date.Before(MinDate) {
		return fmt.Errorf("%w: date %s is before %s", ErrInvalidRequest, req.Date, MinDate)
	}
	if req.Status != "" && req.Status != StatusPresent {
		return fmt.Errorf("%w: status %q cannot be recorded", ErrInvalidRequest, req.Status)
	}
	if today := s.Today(); req.Date.After(today) {
		return fmt.Errorf("%w: date %s is after today (%s)", ErrInvalidRequest, req.Date, today)
	}
	return nil
}
