package employee

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"staffattend/internal/matcher"
)

// Cascader receives registry changes that dependent in-memory stores must
// mirror. attendance.MemoryRepository implements it.
type Cascader interface {
	RenameEmployee(oldID, newID string)
	DeleteEmployee(id string)
}

// MemoryRepository keeps the registry in process, for local runs and tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	byCode      map[string]Employee
	descriptors map[string][][]float32
	cascade     []Cascader
	now         func() time.Time
}

// NewMemoryRepository returns an empty registry. Renames and deletes are
// forwarded to every cascade.
func NewMemoryRepository(cascade ...Cascader) *MemoryRepository {
	return &MemoryRepository{
		byCode:      make(map[string]Employee),
		descriptors: make(map[string][][]float32),
		cascade:     cascade,
		now:         time.Now,
	}
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Employee, 0, len(r.byCode))
	for _, e := range r.byCode {
		if f.matches(e) {
			out = append(out, r.withCount(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, code string) (Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byCode[code]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return r.withCount(e), nil
}

func (r *MemoryRepository) Exists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byCode[code]
	return ok, nil
}

func (r *MemoryRepository) Create(_ context.Context, e Employee) (Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[e.Code]; ok {
		return Employee{}, ErrDuplicateCode
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = r.now().UTC()
	e.UpdatedAt = e.CreatedAt
	e.DescriptorCount = 0
	r.byCode[e.Code] = e
	return e, nil
}

func (r *MemoryRepository) Update(_ context.Context, code string, e Employee) (Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byCode[code]
	if !ok {
		return Employee{}, ErrNotFound
	}
	if e.Code != code {
		if _, taken := r.byCode[e.Code]; taken {
			return Employee{}, ErrDuplicateCode
		}
	}
	e.ID = cur.ID
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = r.now().UTC()
	delete(r.byCode, code)
	r.byCode[e.Code] = e
	if e.Code != code {
		if d, ok := r.descriptors[code]; ok {
			delete(r.descriptors, code)
			r.descriptors[e.Code] = d
		}
		for _, c := range r.cascade {
			c.RenameEmployee(code, e.Code)
		}
	}
	return r.withCount(e), nil
}

func (r *MemoryRepository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[code]; !ok {
		return ErrNotFound
	}
	delete(r.byCode, code)
	delete(r.descriptors, code)
	for _, c := range r.cascade {
		c.DeleteEmployee(code)
	}
	return nil
}

func (r *MemoryRepository) ReplaceDescriptors(_ context.Context, code string, vectors [][]float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[code]; !ok {
		return ErrNotFound
	}
	if len(vectors) == 0 {
		delete(r.descriptors, code)
		return nil
	}
	cp := make([][]float32, len(vectors))
	for i, v := range vectors {
		cp[i] = append([]float32(nil), v...)
	}
	r.descriptors[code] = cp
	return nil
}

func (r *MemoryRepository) Descriptors(_ context.Context) ([]matcher.LabeledDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.descriptors))
	for code := range r.descriptors {
		if r.byCode[code].Active {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	var out []matcher.LabeledDescriptor
	for _, code := range codes {
		for _, v := range r.descriptors[code] {
			out = append(out, matcher.LabeledDescriptor{EmployeeID: code, Vector: v})
		}
	}
	return out, nil
}

func (r *MemoryRepository) withCount(e Employee) Employee {
	e.DescriptorCount = len(r.descriptors[e.Code])
	return e
}
