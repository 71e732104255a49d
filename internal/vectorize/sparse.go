package vectorize

import "sort"

// SparseVector is a count vector over a vocabulary. Indices are strictly
// increasing and every stored value is non-zero.
type SparseVector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
	Dim     int       `json:"dim"`
}

// NewSparseVector builds a vector from index -> count pairs
func NewSparseVector(dim int, counts map[int]float64) SparseVector {
	sv := SparseVector{Dim: dim}
	if len(counts) == 0 {
		return sv
	}

	sv.Indices = make([]int, 0, len(counts))
	for idx, v := range counts {
		if v != 0 {
			sv.Indices = append(sv.Indices, idx)
		}
	}
	sort.Ints(sv.Indices)

	sv.Values = make([]float64, len(sv.Indices))
	for i, idx := range sv.Indices {
		sv.Values[i] = counts[idx]
	}
	return sv
}

// Dot computes the dot product with a dense vector. Indices beyond the
// dense length contribute nothing.
func (sv SparseVector) Dot(dense []float64) float64 {
	var sum float64
	for i, idx := range sv.Indices {
		if idx < len(dense) {
			sum += sv.Values[i] * dense[idx]
		}
	}
	return sum
}

// AddScaledTo adds alpha*sv to dst in place
func (sv SparseVector) AddScaledTo(dst []float64, alpha float64) {
	for i, idx := range sv.Indices {
		if idx < len(dst) {
			dst[idx] += alpha * sv.Values[i]
		}
	}
}

// ToDense converts to a dense float64 slice
func (sv SparseVector) ToDense() []float64 {
	dense := make([]float64, sv.Dim)
	for i, idx := range sv.Indices {
		if idx < sv.Dim {
			dense[idx] = sv.Values[i]
		}
	}
	return dense
}

// Nnz returns the number of non-zero entries
func (sv SparseVector) Nnz() int {
	return len(sv.Indices)
}

// Get returns the value stored at idx
func (sv SparseVector) Get(idx int) float64 {
	i := sort.SearchInts(sv.Indices, idx)
	if i < len(sv.Indices) && sv.Indices[i] == idx {
		return sv.Values[i]
	}
	return 0
}

// Equal reports whether two vectors hold the same entries and dimension
func (sv SparseVector) Equal(other SparseVector) bool {
	if sv.Dim != other.Dim || len(sv.Indices) != len(other.Indices) {
		return false
	}
	for i := range sv.Indices {
		if sv.Indices[i] != other.Indices[i] || sv.Values[i] != other.Values[i] {
			return false
		}
	}
	return true
}
