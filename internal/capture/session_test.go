package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffattend/internal/attendance"
	"staffattend/internal/faceclient"
	"staffattend/internal/matcher"
)

type staticSource struct {
	frame []byte
	err   error
}

func (s staticSource) Name() string { return "test" }
func (s staticSource) Capture(context.Context) ([]byte, error) {
	return s.frame, s.err
}

type fakeExtractor struct {
	desc []float32
	err  error
}

func (f fakeExtractor) Embed(context.Context, []byte) ([]float32, error) { return f.desc, f.err }

type fakeIdentifier struct {
	mu sync.Mutex
	id string
}

func (f *fakeIdentifier) set(id string) {
	f.mu.Lock()
	f.id = id
	f.mu.Unlock()
}

func (f *fakeIdentifier) Match([]float32) (matcher.Match, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.id == "" {
		return matcher.Match{}, false
	}
	return matcher.Match{EmployeeID: f.id, Distance: 0.3}, true
}

type fakeRecorder struct {
	calls   atomic.Int32
	err     error
	outcome attendance.Outcome
	block   chan struct{}
	last    attendance.Request
	mu      sync.Mutex
}

func (r *fakeRecorder) Record(ctx context.Context, req attendance.Request) (attendance.Result, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.last = req
	r.mu.Unlock()
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return attendance.Result{}, ctx.Err()
		}
	}
	if r.err != nil {
		return attendance.Result{}, r.err
	}
	out := r.outcome
	if out == "" {
		out = attendance.Created
	}
	return attendance.Result{Outcome: out}, nil
}

func newTestSession(ident Identifier, rec Recorder, clock *fakeClock) *Session {
	return NewSession(
		staticSource{frame: []byte("frame")},
		fakeExtractor{desc: []float32{0.1}},
		ident, rec,
		SessionConfig{Cooldown: 5 * time.Second, Now: clock.Now, Location: time.UTC},
		nil,
	)
}

func TestSessionSuppressesRepeatMatches(t *testing.T) {
	clock := newFakeClock()
	ident := &fakeIdentifier{id: "EMP001"}
	rec := &fakeRecorder{}
	s := newTestSession(ident, rec, clock)
	ctx := context.Background()

	assert.Equal(t, OutcomeMarked, s.Attempt(ctx))
	assert.Equal(t, "2024-01-05", rec.last.Date.String())
	assert.Equal(t, attendance.StatusPresent, rec.last.Status)
	assert.Empty(t, rec.last.Photo)

	clock.Advance(3 * time.Second)
	assert.Equal(t, OutcomeSuppressed, s.Attempt(ctx))
	assert.Equal(t, int32(1), rec.calls.Load())

	ident.set("EMP002")
	assert.Equal(t, OutcomeMarked, s.Attempt(ctx), "a different identity is processed normally")
	assert.Equal(t, int32(2), rec.calls.Load())

	ident.set("EMP001")
	clock.Advance(2 * time.Second)
	assert.Equal(t, OutcomeMarked, s.Attempt(ctx), "window elapsed")
	assert.Equal(t, int32(3), rec.calls.Load())
}

func TestSessionAlreadyMarkedSuppresses(t *testing.T) {
	clock := newFakeClock()
	rec := &fakeRecorder{outcome: attendance.AlreadyMarked}
	s := newTestSession(&fakeIdentifier{id: "EMP001"}, rec, clock)

	assert.Equal(t, OutcomeAlreadyMarked, s.Attempt(context.Background()))
	assert.True(t, s.Cooldown().Suppressed("EMP001"))
}

func TestSessionFailureDoesNotSuppress(t *testing.T) {
	clock := newFakeClock()
	rec := &fakeRecorder{err: attendance.ErrStoreUnavailable}
	s := newTestSession(&fakeIdentifier{id: "EMP001"}, rec, clock)
	ctx := context.Background()

	assert.Equal(t, OutcomeFailed, s.Attempt(ctx))
	assert.False(t, s.Cooldown().Suppressed("EMP001"))

	rec.err = nil
	assert.Equal(t, OutcomeMarked, s.Attempt(ctx), "next attempt retries immediately")
	assert.Equal(t, int32(2), rec.calls.Load())
}

func TestSessionSkipsWithoutFaceOrMatch(t *testing.T) {
	clock := newFakeClock()
	rec := &fakeRecorder{}
	ctx := context.Background()

	noFace := NewSession(staticSource{frame: []byte("x")}, fakeExtractor{err: faceclient.ErrNoFace},
		&fakeIdentifier{id: "EMP001"}, rec, SessionConfig{Now: clock.Now}, nil)
	assert.Equal(t, OutcomeNoFace, noFace.Attempt(ctx))

	noFrame := NewSession(staticSource{err: ErrNoFrame}, fakeExtractor{desc: []float32{1}},
		&fakeIdentifier{id: "EMP001"}, rec, SessionConfig{Now: clock.Now}, nil)
	assert.Equal(t, OutcomeNoFrame, noFrame.Attempt(ctx))

	extractErr := NewSession(staticSource{frame: []byte("x")}, fakeExtractor{err: errors.New("timeout")},
		&fakeIdentifier{id: "EMP001"}, rec, SessionConfig{Now: clock.Now}, nil)
	assert.Equal(t, OutcomeFailed, extractErr.Attempt(ctx))

	unknown := newTestSession(&fakeIdentifier{}, rec, clock)
	assert.Equal(t, OutcomeNoMatch, unknown.Attempt(ctx))

	assert.Zero(t, rec.calls.Load())
}

func TestSessionInFlightGuard(t *testing.T) {
	clock := newFakeClock()
	rec := &fakeRecorder{block: make(chan struct{})}
	s := newTestSession(&fakeIdentifier{id: "EMP001"}, rec, clock)
	ctx := context.Background()

	done := make(chan Outcome)
	go func() { done <- s.Attempt(ctx) }()

	require.Eventually(t, func() bool { return rec.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, OutcomeBusy, s.Attempt(ctx))

	close(rec.block)
	assert.Equal(t, OutcomeMarked, <-done)
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestSessionRecordTimeout(t *testing.T) {
	clock := newFakeClock()
	rec := &fakeRecorder{block: make(chan struct{})}
	s := NewSession(staticSource{frame: []byte("x")}, fakeExtractor{desc: []float32{1}},
		&fakeIdentifier{id: "EMP001"}, rec,
		SessionConfig{RecordTimeout: 20 * time.Millisecond, Now: clock.Now}, nil)

	assert.Equal(t, OutcomeFailed, s.Attempt(context.Background()))
	assert.False(t, s.Cooldown().Suppressed("EMP001"))
}

func TestSessionRunStopsOnCancel(t *testing.T) {
	rec := &fakeRecorder{outcome: attendance.AlreadyMarked}
	s := NewSession(staticSource{frame: []byte("x")}, fakeExtractor{desc: []float32{1}},
		&fakeIdentifier{id: "EMP001"}, rec, SessionConfig{Interval: 5 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.calls.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session did not stop")
	}
	assert.Equal(t, int32(1), rec.calls.Load(), "cooldown holds further records")
}
