package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"staffattend/internal/attendance"
	"staffattend/internal/faceclient"
	"staffattend/internal/matcher"
)

// Repository is the registry store.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Employee, error)
	Get(ctx context.Context, code string) (Employee, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, code string, e Employee) (Employee, error)
	Delete(ctx context.Context, code string) error
	ReplaceDescriptors(ctx context.Context, code string, vectors [][]float32) error
	Descriptors(ctx context.Context) ([]matcher.LabeledDescriptor, error)
}

// Versioner bumps and reads the gallery version stations poll.
type Versioner interface {
	Bump(ctx context.Context) (int64, error)
	Current(ctx context.Context) (int64, error)
}

// EnrollQueue schedules descriptor extraction for an employee photo.
type EnrollQueue interface {
	EnqueueEnroll(ctx context.Context, code string) error
}

// Extractor computes a descriptor from a stored photo.
type Extractor interface {
	EmbedBase64(ctx context.Context, photo string) ([]float32, error)
}

// Service wraps the registry with the side effects stations depend on:
// every change bumps the gallery version and photo changes schedule an
// enrollment.
type Service struct {
	repo    Repository
	version Versioner
	enroll  EnrollQueue
	log     *zap.Logger
	now     func() time.Time
}

// joinDateHorizonYears is how many years ahead of today a join date may be scheduled.
const joinDateHorizonYears = 1

// NewService wires the registry to the gallery version and the enroll queue.
// enroll may be nil when photos are enrolled synchronously.
func NewService(repo Repository, version Versioner, enroll EnrollQueue, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, version: version, enroll: enroll, log: log, now: time.Now}
}

// List returns the employees matching f ordered by code.
func (s *Service) List(ctx context.Context, f Filter) ([]Employee, error) {
	return s.repo.List(ctx, f)
}

// Get returns the employee registered under code.
func (s *Service) Get(ctx context.Context, code string) (Employee, error) {
	return s.repo.Get(ctx, strings.TrimSpace(code))
}

// Exists reports whether code is registered.
func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	return s.repo.Exists(ctx, code)
}

// Create registers a new employee.
func (s *Service) Create(ctx context.Context, e Employee) (Employee, error) {
	e.Code = strings.TrimSpace(e.Code)
	e.Name = strings.TrimSpace(e.Name)
	if e.Code == "" || e.Name == "" {
		return Employee{}, fmt.Errorf("%w: code and name are required", ErrInvalid)
	}
	if err := s.checkJoinDate(e.JoinDate); err != nil {
		return Employee{}, err
	}
	out, err := s.repo.Create(ctx, e)
	if err != nil {
		return Employee{}, err
	}
	s.log.Info("employee created", zap.String("code", out.Code))
	s.changed(ctx, out.Code, out.HasPhoto())
	return out, nil
}

// Update replaces the employee identified by code. An empty e.Code keeps the
// current code; an empty e.Photo keeps the current photo.
func (s *Service) Update(ctx context.Context, code string, e Employee) (Employee, error) {
	cur, err := s.repo.Get(ctx, code)
	if err != nil {
		return Employee{}, err
	}
	e.Code = strings.TrimSpace(e.Code)
	if e.Code == "" {
		e.Code = cur.Code
	}
	if strings.TrimSpace(e.Name) == "" {
		e.Name = cur.Name
	}
	if e.JoinDate != cur.JoinDate {
		if err := s.checkJoinDate(e.JoinDate); err != nil {
			return Employee{}, err
		}
	}
	photoChanged := e.Photo != "" && e.Photo != cur.Photo
	if e.Photo == "" {
		e.Photo = cur.Photo
	}
	out, err := s.repo.Update(ctx, code, e)
	if err != nil {
		return Employee{}, err
	}
	s.log.Info("employee updated", zap.String("code", code), zap.String("new_code", out.Code))
	s.changed(ctx, out.Code, photoChanged)
	return out, nil
}

// Delete removes the employee and, by cascade, its attendance records.
func (s *Service) Delete(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}
	s.log.Info("employee deleted", zap.String("code", code))
	s.changed(ctx, code, false)
	return nil
}

// Gallery returns the descriptors of active employees with the version they
// belong to. The version is read first, so a concurrent change can only make
// a station reload once more.
func (s *Service) Gallery(ctx context.Context) (matcher.Gallery, error) {
	v, err := s.version.Current(ctx)
	if err != nil {
		return matcher.Gallery{}, err
	}
	d, err := s.repo.Descriptors(ctx)
	if err != nil {
		return matcher.Gallery{}, err
	}
	if d == nil {
		d = []matcher.LabeledDescriptor{}
	}
	return matcher.Gallery{Version: v, Descriptors: d}, nil
}

// GalleryVersion returns the current gallery version.
func (s *Service) GalleryVersion(ctx context.Context) (int64, error) {
	return s.version.Current(ctx)
}

// Enroll extracts the descriptor of the employee's photo and makes it the
// employee's only descriptor. With no photo or no detectable face the
// descriptors are cleared and the employee becomes unmatchable.
func (s *Service) Enroll(ctx context.Context, code string, ex Extractor) error {
	e, err := s.repo.Get(ctx, code)
	if err != nil {
		return err
	}

	var vectors [][]float32
	if e.HasPhoto() {
		v, err := ex.EmbedBase64(ctx, e.Photo)
		switch {
		case err == nil:
			vectors = [][]float32{v}
		case errors.Is(err, faceclient.ErrNoFace):
			s.log.Warn("no face in employee photo", zap.String("code", code))
		default:
			return fmt.Errorf("extract descriptor: %w", err)
		}
	}

	if err := s.repo.ReplaceDescriptors(ctx, code, vectors); err != nil {
		return err
	}
	if _, err := s.version.Bump(ctx); err != nil {
		return fmt.Errorf("bump gallery version: %w", err)
	}
	s.log.Info("employee enrolled", zap.String("code", code), zap.Int("descriptors", len(vectors)))
	return nil
}

// checkJoinDate accepts no date, or a date from 1900 up to a year ahead.
func (s *Service) checkJoinDate(d attendance.Date) error {
	if d.IsZero() {
		return nil
	}
	today := attendance.DateOf(s.now())
	latest := attendance.NewDate(today.Year()+joinDateHorizonYears, today.Month(), today.Day())
	if d.Before(attendance.MinDate) || d.After(latest) {
		return fmt.Errorf("%w: join date %s must be between %s and %s", ErrInvalid, d, attendance.MinDate, latest)
	}
	return nil
}

func (s *Service) changed(ctx context.Context, code string, enroll bool) {
	if enroll && s.enroll != nil {
		if err := s.enroll.EnqueueEnroll(ctx, code); err != nil {
			s.log.Warn("enqueue enroll failed", zap.String("code", code), zap.Error(err))
		}
	}
	if _, err := s.version.Bump(ctx); err != nil {
		s.log.Warn("bump gallery version failed", zap.Error(err))
	}
}
