package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.January, 5, 8, 45, 12, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestService(t *testing.T, known ...string) (*Service, *MemoryRepository) {
	t.Helper()
	set := map[string]bool{}
	for _, id := range known {
		set[id] = true
	}
	repo := NewMemoryRepository(
		WithMemoryClock(fixedClock, time.UTC),
		WithEmployeeCheck(func(_ context.Context, id string) (bool, error) { return set[id], nil }),
	)
	return NewService(repo, WithClock(fixedClock)), repo
}

func TestRecordIsIdempotent(t *testing.T) {
	svc, repo := newTestService(t, "EMP001")
	ctx := context.Background()
	req := Request{EmployeeID: "EMP001", Date: NewDate(2024, time.January, 5), Status: StatusPresent}

	first, err := svc.Record(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Created, first.Outcome)
	require.NotNil(t, first.Record)
	assert.Equal(t, "08:45:12", first.Record.Time.String())
	assert.Equal(t, StatusPresent, first.Record.Status)

	second, err := svc.Record(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, AlreadyMarked, second.Outcome)
	assert.Nil(t, second.Record)

	rows, err := repo.List(ctx, Query{EmployeeID: "EMP001"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecordIgnoresClientTime(t *testing.T) {
	svc, _ := newTestService(t, "EMP001")
	clientTime := NewTimeOfDay(7, 0, 0)

	res, err := svc.Record(context.Background(), Request{
		EmployeeID: "EMP001",
		Date:       NewDate(2024, time.January, 4),
		Time:       &clientTime,
	})
	require.NoError(t, err)
	assert.Equal(t, "08:45:12", res.Record.Time.String())
}

func TestRecordConcurrentSameDay(t *testing.T) {
	svc, repo := newTestService(t, "EMP001")
	ctx := context.Background()
	req := Request{EmployeeID: "EMP001", Date: NewDate(2024, time.January, 5)}

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Record(ctx, req)
			assert.NoError(t, err)
			if res.Outcome == Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	rows, err := repo.List(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newTestService(t, "EMP001")
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "missing employee", req: Request{Date: NewDate(2024, 1, 5)}, wantErr: ErrInvalidRequest},
		{name: "blank employee", req: Request{EmployeeID: "  ", Date: NewDate(2024, 1, 5)}, wantErr: ErrInvalidRequest},
		{name: "missing date", req: Request{EmployeeID: "EMP001"}, wantErr: ErrInvalidRequest},
		{name: "absent status", req: Request{EmployeeID: "EMP001", Date: NewDate(2024, 1, 5), Status: StatusAbsent}, wantErr: ErrInvalidRequest},
		{name: "future date", req: Request{EmployeeID: "EMP001", Date: NewDate(2024, 1, 6)}, wantErr: ErrInvalidRequest},
		{name: "date before 1900", req: Request{EmployeeID: "EMP001", Date: NewDate(1899, 12, 31)}, wantErr: ErrInvalidRequest},
		{name: "unknown employee", req: Request{EmployeeID: "EMP999", Date: NewDate(2024, 1, 5)}, wantErr: ErrUnknownEmployee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type failingRepo struct{}

func (failingRepo) InsertPresent(context.Context, NewRecord) (Record, bool, error) {
	return Record{}, false, errors.Join(ErrStoreUnavailable, errors.New("connection refused"))
}

func (failingRepo) List(context.Context, Query) ([]Record, error) {
	return nil, ErrStoreUnavailable
}

func TestRecordStoreUnavailable(t *testing.T) {
	svc := NewService(failingRepo{}, WithClock(fixedClock))
	_, err := svc.Record(context.Background(), Request{EmployeeID: "EMP001", Date: NewDate(2024, 1, 5)})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestListOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	clock := fixedNow
	repo := NewMemoryRepository(WithMemoryClock(func() time.Time { return clock }, time.UTC))
	svc := NewService(repo, WithClock(fixedClock))

	for _, rec := range []struct {
		id  string
		day int
		at  time.Duration
	}{
		{"EMP001", 2, 0},
		{"EMP002", 3, time.Minute},
		{"EMP001", 3, 2 * time.Minute},
		{"EMP003", 4, 3 * time.Minute},
	} {
		clock = fixedNow.Add(rec.at)
		_, err := svc.Record(ctx, Request{EmployeeID: rec.id, Date: NewDate(2024, 1, rec.day)})
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "EMP003", all[0].EmployeeID)
	assert.Equal(t, "EMP001", all[1].EmployeeID, "same day sorts by check-in desc")
	assert.Equal(t, "EMP002", all[2].EmployeeID)

	ranged, err := svc.List(ctx, Query{From: NewDate(2024, 1, 3), To: NewDate(2024, 1, 3)})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	some, err := svc.List(ctx, Query{EmployeeIDs: []string{"EMP002", "EMP003"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "EMP003", some[0].EmployeeID)

	_, err = svc.List(ctx, Query{From: NewDate(2024, 1, 4), To: NewDate(2024, 1, 3)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestMemoryRepositoryCascade(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(WithMemoryClock(fixedClock, time.UTC))
	_, _, err := repo.InsertPresent(ctx, NewRecord{EmployeeID: "OLD", Date: NewDate(2024, 1, 1)})
	require.NoError(t, err)

	repo.RenameEmployee("OLD", "NEW")
	rows, err := repo.List(ctx, Query{EmployeeID: "NEW"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "NEW", rows[0].EmployeeID)

	repo.DeleteEmployee("NEW")
	rows, err = repo.List(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryRepositoryRechecksAfterConcurrentDelete(t *testing.T) {
	ctx := context.Background()
	var repo *MemoryRepository
	calls := 0
	repo = NewMemoryRepository(
		WithMemoryClock(fixedClock, time.UTC),
		WithEmployeeCheck(func(_ context.Context, id string) (bool, error) {
			calls++
			if calls == 1 {
				// The employee is deleted after the check passed but before
				// the insert takes the lock.
				repo.DeleteEmployee(id)
				return true, nil
			}
			return false, nil
		}),
	)

	_, created, err := repo.InsertPresent(ctx, NewRecord{EmployeeID: "EMP001", Date: NewDate(2024, 1, 5)})
	assert.ErrorIs(t, err, ErrUnknownEmployee)
	assert.False(t, created)
	assert.Equal(t, 2, calls)

	rows, err := repo.List(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, rows, "no orphan record for a deleted employee")
}
