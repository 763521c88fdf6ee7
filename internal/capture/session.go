// Package capture runs the timer-driven recognition loop of a camera station.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"staffattend/internal/attendance"
	"staffattend/internal/faceclient"
	"staffattend/internal/matcher"
)

const (
	DefaultInterval      = 3 * time.Second
	DefaultRecordTimeout = 5 * time.Second
)

// Extractor turns a frame into a face descriptor.
type Extractor interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// Identifier matches a descriptor against the loaded gallery.
type Identifier interface {
	Match(query []float32) (matcher.Match, bool)
}

// Recorder persists a Present record.
type Recorder interface {
	Record(ctx context.Context, req attendance.Request) (attendance.Result, error)
}

// Outcome of one capture attempt.
type Outcome string

const (
	OutcomeBusy          Outcome = "busy"
	OutcomeNoFrame       Outcome = "no_frame"
	OutcomeNoFace        Outcome = "no_face"
	OutcomeNoMatch       Outcome = "no_match"
	OutcomeSuppressed    Outcome = "suppressed"
	OutcomeMarked        Outcome = "marked"
	OutcomeAlreadyMarked Outcome = "already_marked"
	OutcomeFailed        Outcome = "failed"
)

// SessionConfig tunes a Session. Zero values take the defaults.
type SessionConfig struct {
	Interval      time.Duration
	Cooldown      time.Duration
	RecordTimeout time.Duration
	Location      *time.Location
	AttachPhoto   bool
	Now           func() time.Time
}

// Session is one camera's capture loop. Attempts are strictly sequential:
// capture, extract, match, cooldown check, record. A tick that arrives while
// an attempt is still in flight is skipped.
type Session struct {
	source    FrameSource
	extractor Extractor
	ident     Identifier
	recorder  Recorder
	cooldown  *Cooldown
	cfg       SessionConfig
	log       *zap.Logger

	inFlight atomic.Bool
}

// NewSession wires one camera to the extractor, matcher and recorder.
func NewSession(source FrameSource, ex Extractor, ident Identifier, rec Recorder, cfg SessionConfig, log *zap.Logger) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = DefaultRecordTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		source:    source,
		extractor: ex,
		ident:     ident,
		recorder:  rec,
		cooldown:  NewCooldown(cfg.Cooldown, cfg.Now),
		cfg:       cfg,
		log:       log.With(zap.String("camera", source.Name())),
	}
}

// Cooldown exposes the session's controller.
func (s *Session) Cooldown() *Cooldown { return s.cooldown }

// Run fires an attempt on every tick until ctx is done. It waits for the
// attempt in flight before returning.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	s.log.Info("capture session started", zap.Duration("interval", s.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("capture session stopped")
			return nil
		case <-ticker.C:
			if !s.inFlight.CompareAndSwap(false, true) {
				attemptsTotal.WithLabelValues(string(OutcomeBusy)).Inc()
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer s.inFlight.Store(false)
				s.attempt(ctx)
			}()
		}
	}
}

// Attempt runs one pipeline pass unless another is in flight, in which case
// it returns OutcomeBusy immediately.
func (s *Session) Attempt(ctx context.Context) Outcome {
	if !s.inFlight.CompareAndSwap(false, true) {
		attemptsTotal.WithLabelValues(string(OutcomeBusy)).Inc()
		return OutcomeBusy
	}
	defer s.inFlight.Store(false)
	return s.attempt(ctx)
}

func (s *Session) attempt(ctx context.Context) Outcome {
	out := s.pipeline(ctx)
	attemptsTotal.WithLabelValues(string(out)).Inc()
	return out
}

func (s *Session) pipeline(ctx context.Context) Outcome {
	frame, err := s.source.Capture(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoFrame) {
			s.log.Warn("frame capture failed", zap.Error(err))
		}
		return OutcomeNoFrame
	}

	desc, err := s.extractor.Embed(ctx, frame)
	if err != nil {
		if errors.Is(err, faceclient.ErrNoFace) {
			s.log.Debug("no face in frame")
			return OutcomeNoFace
		}
		s.log.Warn("descriptor extraction failed", zap.Error(err))
		return OutcomeFailed
	}

	match, ok := s.ident.Match(desc)
	if !ok {
		s.log.Debug("face not recognized")
		return OutcomeNoMatch
	}
	if s.cooldown.Suppressed(match.EmployeeID) {
		return OutcomeSuppressed
	}

	req := attendance.Request{
		EmployeeID: match.EmployeeID,
		Date:       attendance.DateOf(s.cfg.Now().In(s.cfg.Location)),
		Status:     attendance.StatusPresent,
	}
	if s.cfg.AttachPhoto {
		req.Photo = base64.StdEncoding.EncodeToString(frame)
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.RecordTimeout)
	defer cancel()
	res, err := s.recorder.Record(rctx, req)
	if err != nil {
		s.log.Warn("record attendance failed",
			zap.String("employee_id", match.EmployeeID),
			zap.Error(err),
		)
		return OutcomeFailed
	}

	s.cooldown.Mark(match.EmployeeID)
	if res.Outcome == attendance.AlreadyMarked {
		s.log.Debug("already marked today", zap.String("employee_id", match.EmployeeID))
		return OutcomeAlreadyMarked
	}
	s.log.Info("attendance marked",
		zap.String("employee_id", match.EmployeeID),
		zap.Float64("distance", match.Distance),
	)
	return OutcomeMarked
}
