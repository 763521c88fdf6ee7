package matcher

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	d, ok := Distance([]float32{0, 0}, []float32{3, 4})
	require.True(t, ok)
	assert.InDelta(t, 5.0, d, 1e-9)

	_, ok = Distance([]float32{1, 2}, []float32{1, 2, 3})
	assert.False(t, ok)
	_, ok = Distance(nil, nil)
	assert.False(t, ok)
}

func TestBest(t *testing.T) {
	gallery := []LabeledDescriptor{
		{EmployeeID: "EMP002", Vector: []float32{1, 0}},
		{EmployeeID: "EMP001", Vector: []float32{0, 1}},
		{EmployeeID: "EMP001", Vector: []float32{0.1, 0}},
		{EmployeeID: "EMP003", Vector: []float32{0, 0, 0}},
	}

	tests := []struct {
		name    string
		query   []float32
		want    string
		wantHit bool
	}{
		{name: "best of several descriptors", query: []float32{0.15, 0}, want: "EMP001", wantHit: true},
		{name: "closest other employee", query: []float32{0.9, 0}, want: "EMP002", wantHit: true},
		{name: "too far", query: []float32{5, 5}, wantHit: false},
		{name: "dimension mismatch ignored", query: []float32{0, 0, 0.1}, wantHit: true, want: "EMP003"},
		{name: "no descriptors of that size", query: []float32{0, 0, 0, 0}, wantHit: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Best(tt.query, gallery, DefaultThreshold)
			assert.Equal(t, tt.wantHit, ok)
			assert.Equal(t, tt.want, got.EmployeeID)
		})
	}
}

func TestBestThresholdIsInclusive(t *testing.T) {
	gallery := []LabeledDescriptor{{EmployeeID: "EMP001", Vector: []float32{0, 0}}}

	got, ok := Best([]float32{0.5, 0}, gallery, 0.5)
	require.True(t, ok)
	assert.Equal(t, 0.5, got.Distance)

	_, ok = Best([]float32{0.5, 0}, gallery, 0.49)
	assert.False(t, ok)
}

func TestBestTieGoesToSmallestID(t *testing.T) {
	gallery := []LabeledDescriptor{
		{EmployeeID: "EMP009", Vector: []float32{1, 0}},
		{EmployeeID: "EMP004", Vector: []float32{-1, 0}},
	}
	got, ok := Best([]float32{0, 0}, gallery, 2)
	require.True(t, ok)
	assert.Equal(t, "EMP004", got.EmployeeID)
}

func TestMatcherEmptyGallery(t *testing.T) {
	m := New(0)
	assert.Equal(t, DefaultThreshold, m.Threshold())
	assert.Equal(t, int64(-1), m.Version())

	_, ok := m.Match([]float32{0, 0})
	assert.False(t, ok)

	m.Load(Gallery{Version: 3})
	assert.Equal(t, int64(3), m.Version())
	_, ok = m.Match([]float32{0, 0})
	assert.False(t, ok)
}

func randomGallery(rng *rand.Rand, employees, perEmployee, dims int) []LabeledDescriptor {
	var out []LabeledDescriptor
	for e := 0; e < employees; e++ {
		for k := 0; k < perEmployee; k++ {
			v := make([]float32, dims)
			for i := range v {
				v[i] = rng.Float32()
			}
			out = append(out, LabeledDescriptor{EmployeeID: fmt.Sprintf("EMP%03d", e), Vector: v})
		}
	}
	return out
}

func TestHNSWAgreesWithExactOnGalleryMembers(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	gallery := randomGallery(rng, 40, 2, 16)

	exact := New(DefaultThreshold)
	approx := New(DefaultThreshold, WithIndex(NewHNSWIndex(8)))
	exact.Load(Gallery{Version: 1, Descriptors: gallery})
	approx.Load(Gallery{Version: 1, Descriptors: gallery})

	for _, d := range gallery[:20] {
		want, ok := exact.Match(d.Vector)
		require.True(t, ok)
		got, ok := approx.Match(d.Vector)
		require.True(t, ok)
		assert.Equal(t, want.EmployeeID, got.EmployeeID)
		assert.Zero(t, got.Distance)
	}
}

func TestHNSWSkipsOtherDimensions(t *testing.T) {
	idx := NewHNSWIndex(1)
	idx.Build([]LabeledDescriptor{
		{EmployeeID: "A", Vector: []float32{0, 0}},
		{EmployeeID: "B", Vector: []float32{1, 1}},
		{EmployeeID: "C", Vector: []float32{0, 0, 0}},
	})
	assert.Equal(t, 3, idx.Len())
	assert.Nil(t, idx.Candidates([]float32{0, 0, 0}))

	cands := idx.Candidates([]float32{0.1, 0})
	require.NotEmpty(t, cands)
	m, ok := Best([]float32{0.1, 0}, cands, DefaultThreshold)
	require.True(t, ok)
	assert.Equal(t, "A", m.EmployeeID)
	assert.False(t, math.IsInf(m.Distance, 0))
}

func TestNewIndex(t *testing.T) {
	assert.IsType(t, &HNSWIndex{}, NewIndex("hnsw"))
	assert.IsType(t, &ExactIndex{}, NewIndex("exact"))
	assert.IsType(t, &ExactIndex{}, NewIndex(""))
}
