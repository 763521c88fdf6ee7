package matcher

import (
	"sort"

	"github.com/coder/hnsw"
)

// ExactIndex returns every descriptor as a candidate.
type ExactIndex struct {
	descriptors []LabeledDescriptor
}

// Build replaces the indexed descriptors with a copy of descriptors.
func (x *ExactIndex) Build(descriptors []LabeledDescriptor) {
	x.descriptors = append([]LabeledDescriptor(nil), descriptors...)
}

// Candidates returns all descriptors regardless of the query.
func (x *ExactIndex) Candidates([]float32) []LabeledDescriptor { return x.descriptors }

// Len returns the number of indexed descriptors.
func (x *ExactIndex) Len() int { return len(x.descriptors) }

const (
	defaultHNSWNeighbors = 16
	defaultHNSWTopK      = 32
)

// HNSWIndex uses an approximate nearest-neighbor graph to pick the employees
// closest to a query and returns all of their descriptors, so the final
// decision is still an exact best-of-N comparison.
//
// The graph holds one dimensionality, the most common one in the gallery.
// Descriptors of any other length cannot match anyway and are left out.
type HNSWIndex struct {
	topK   int
	graph  *hnsw.Graph[int]
	dims   int
	all    []LabeledDescriptor
	byEmpl map[string][]int
}

// NewHNSWIndex returns an index that looks at the topK nearest descriptors.
func NewHNSWIndex(topK int) *HNSWIndex {
	if topK <= 0 {
		topK = defaultHNSWTopK
	}
	return &HNSWIndex{topK: topK}
}

// Build rebuilds the graph from descriptors.
func (h *HNSWIndex) Build(descriptors []LabeledDescriptor) {
	h.all = append([]LabeledDescriptor(nil), descriptors...)
	h.byEmpl = make(map[string][]int)
	h.graph = nil
	h.dims = dominantDims(h.all)
	if h.dims == 0 {
		return
	}

	g := hnsw.NewGraph[int]()
	g.M = defaultHNSWNeighbors
	g.Ml = 1.0 / float64(defaultHNSWNeighbors)
	g.Distance = hnsw.EuclideanDistance
	for i, d := range h.all {
		if len(d.Vector) != h.dims || d.EmployeeID == "" {
			continue
		}
		g.Add(hnsw.MakeNode(i, hnsw.Vector(d.Vector)))
		h.byEmpl[d.EmployeeID] = append(h.byEmpl[d.EmployeeID], i)
	}
	h.graph = g
}

func (h *HNSWIndex) Candidates(query []float32) []LabeledDescriptor {
	if h.graph == nil || len(query) != h.dims || h.graph.Len() == 0 {
		return nil
	}
	if h.graph.Len() <= h.topK {
		return h.all
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, n := range h.graph.Search(hnsw.Vector(query), h.topK) {
		id := h.all[n.Key].EmployeeID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []LabeledDescriptor
	for _, id := range ids {
		for _, i := range h.byEmpl[id] {
			out = append(out, h.all[i])
		}
	}
	return out
}

// Len returns the number of indexed descriptors.
func (h *HNSWIndex) Len() int { return len(h.all) }

func dominantDims(descriptors []LabeledDescriptor) int {
	counts := make(map[int]int)
	best, bestN := 0, 0
	for _, d := range descriptors {
		n := len(d.Vector)
		if n == 0 {
			continue
		}
		counts[n]++
		if counts[n] > bestN || (counts[n] == bestN && n < best) {
			best, bestN = n, counts[n]
		}
	}
	return best
}

// NewIndex maps a configured index name to an Index.
func NewIndex(kind string) Index {
	if kind == "hnsw" {
		return NewHNSWIndex(0)
	}
	return &ExactIndex{}
}
