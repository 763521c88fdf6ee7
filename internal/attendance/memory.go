package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type dayKey struct {
	employeeID string
	date       Date
}

// MemoryRepository is an in-process Repository. The mutex makes
// check-and-insert atomic, which is the same guarantee the Postgres unique
// constraint gives.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[dayKey]Record
	// epoch counts renames and deletes so an insert can tell whether its
	// employee check went stale while it was unlocked.
	epoch  uint64
	exists func(ctx context.Context, employeeID string) (bool, error)
	loc    *time.Location
	now    func() time.Time
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithEmployeeCheck rejects inserts for ids the lookup does not know.
func WithEmployeeCheck(exists func(ctx context.Context, employeeID string) (bool, error)) MemoryOption {
	return func(r *MemoryRepository) { r.exists = exists }
}

// WithMemoryClock sets the clock and zone used to stamp check-in times.
func WithMemoryClock(now func() time.Time, loc *time.Location) MemoryOption {
	return func(r *MemoryRepository) {
		if now != nil {
			r.now = now
		}
		if loc != nil {
			r.loc = loc
		}
	}
}

// NewMemoryRepository returns an empty store in UTC.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		records: make(map[dayKey]Record),
		loc:     time.UTC,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InsertPresent stores a Present record unless one exists for the same day.
func (r *MemoryRepository) InsertPresent(ctx context.Context, rec NewRecord) (Record, bool, error) {
	if err := r.lockKnownEmployee(ctx, rec.EmployeeID); err != nil {
		return Record{}, false, err
	}
	defer r.mu.Unlock()

	key := dayKey{employeeID: rec.EmployeeID, date: rec.Date}
	if _, ok := r.records[key]; ok {
		return Record{}, false, nil
	}
	now := r.now()
	checkIn := TimeOfDayOf(now.In(r.loc))
	out := Record{
		ID:         uuid.NewString(),
		EmployeeID: rec.EmployeeID,
		Date:       rec.Date,
		Time:       &checkIn,
		Status:     StatusPresent,
		Photo:      rec.Photo,
		CreatedAt:  now.UTC(),
	}
	r.records[key] = out
	return out, true, nil
}

// lockKnownEmployee returns with r.mu held once the employee check has passed
// and no rename or delete ran between the check and the lock. The check itself
// runs unlocked because the employee store calls back into this repository
// while holding its own lock.
func (r *MemoryRepository) lockKnownEmployee(ctx context.Context, employeeID string) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if r.exists == nil {
			r.mu.Lock()
			return nil
		}

		r.mu.Lock()
		epoch := r.epoch
		r.mu.Unlock()

		ok, err := r.exists(ctx, employeeID)
		if err != nil {
			return fmt.Errorf("%w: employee lookup: %v", ErrStoreUnavailable, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownEmployee, employeeID)
		}

		r.mu.Lock()
		if r.epoch == epoch {
			return nil
		}
		r.mu.Unlock()
	}
}

// List returns matching records newest first.
func (r *MemoryRepository) List(ctx context.Context, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	r.mu.Lock()
	res := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if q.Matches(rec) {
			res = append(res, rec)
		}
	}
	r.mu.Unlock()

	sort.Slice(res, func(i, j int) bool { return newerFirst(res[i], res[j]) })
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

// RenameEmployee moves records to a new employee id, mirroring the
// ON UPDATE CASCADE of the Postgres schema.
func (r *MemoryRepository) RenameEmployee(oldID, newID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	for k, rec := range r.records {
		if k.employeeID != oldID {
			continue
		}
		delete(r.records, k)
		rec.EmployeeID = newID
		r.records[dayKey{employeeID: newID, date: k.date}] = rec
	}
}

// DeleteEmployee drops all records of an employee (ON DELETE CASCADE).
func (r *MemoryRepository) DeleteEmployee(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	for k := range r.records {
		if k.employeeID == id {
			delete(r.records, k)
		}
	}
}

// newerFirst orders by date desc, then check-in desc with missing times last.
func newerFirst(a, b Record) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c > 0
	}
	switch {
	case a.Time == nil && b.Time == nil:
	case a.Time == nil:
		return false
	case b.Time == nil:
		return true
	case a.Time.secs != b.Time.secs:
		return a.Time.secs > b.Time.secs
	}
	return a.CreatedAt.After(b.CreatedAt)
}
