package features

import "sort"

// Entry is a non-zero count at a vocabulary index
type Entry struct {
	Index int
	Count int
}

// FeatureVector is a sparse term-count vector over a Vocabulary. Entries are
// kept sorted by index and never hold a zero count.
type FeatureVector struct {
	dim     int
	entries []Entry
}

// NewFeatureVector builds a vector of dimension dim from an index->count map.
// Zero counts and out of range indices are dropped.
func NewFeatureVector(dim int, counts map[int]int) FeatureVector {
	entries := make([]Entry, 0, len(counts))
	for idx, c := range counts {
		if c <= 0 || idx < 0 || idx >= dim {
			continue
		}
		entries = append(entries, Entry{Index: idx, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return FeatureVector{dim: dim, entries: entries}
}

// FromDense builds a sparse vector from dense counts
func FromDense(counts []int) FeatureVector {
	v := FeatureVector{dim: len(counts)}
	for i, c := range counts {
		if c > 0 {
			v.entries = append(v.entries, Entry{Index: i, Count: c})
		}
	}
	return v
}

// Dim returns the vector length, which equals the vocabulary size
func (v FeatureVector) Dim() int {
	return v.dim
}

// Entries returns the non-zero entries in index order. The slice must not be modified.
func (v FeatureVector) Entries() []Entry {
	return v.entries
}

// NNZ returns the number of non-zero entries
func (v FeatureVector) NNZ() int {
	return len(v.entries)
}

// IsZero reports whether every count is zero
func (v FeatureVector) IsZero() bool {
	return len(v.entries) == 0
}

// At returns the count at index i
func (v FeatureVector) At(i int) int {
	k := sort.Search(len(v.entries), func(k int) bool { return v.entries[k].Index >= i })
	if k < len(v.entries) && v.entries[k].Index == i {
		return v.entries[k].Count
	}
	return 0
}

// Dense expands the vector into a slice of length Dim
func (v FeatureVector) Dense() []int {
	out := make([]int, v.dim)
	for _, e := range v.entries {
		out[e.Index] = e.Count
	}
	return out
}

// SquaredNorm returns the dot product of the vector with itself
func (v FeatureVector) SquaredNorm() float64 {
	var sum float64
	for _, e := range v.entries {
		c := float64(e.Count)
		sum += c * c
	}
	return sum
}

// Equal reports whether two vectors have the same dimension and counts
func (v FeatureVector) Equal(other FeatureVector) bool {
	if v.dim != other.dim || len(v.entries) != len(other.entries) {
		return false
	}
	for i := range v.entries {
		if v.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}
