package features

import (
	"fmt"
	"sort"

	"github.com/mikey/spam-classifier/internal/core"
)

// Vocabulary maps terms to feature indices. Indices follow the lexicographic
// byte order of the terms, so the same set of terms always yields the same
// mapping. A Vocabulary is never modified after construction.
type Vocabulary struct {
	terms []string
	index map[string]int
}

// NewVocabulary restores a vocabulary from its terms in index order. The terms
// must be non-empty, unique and sorted.
func NewVocabulary(terms []string) (*Vocabulary, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: vocabulary has no terms", core.ErrModelCorrupt)
	}

	index := make(map[string]int, len(terms))
	for i, term := range terms {
		if term == "" {
			return nil, fmt.Errorf("%w: empty term at index %d", core.ErrModelCorrupt, i)
		}
		if i > 0 && terms[i-1] >= term {
			return nil, fmt.Errorf("%w: terms out of order at index %d (%q)", core.ErrModelCorrupt, i, term)
		}
		index[term] = i
	}

	owned := make([]string, len(terms))
	copy(owned, terms)
	return &Vocabulary{terms: owned, index: index}, nil
}

func newSortedVocabulary(set map[string]struct{}) *Vocabulary {
	terms := make([]string, 0, len(set))
	for term := range set {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}
	return &Vocabulary{terms: terms, index: index}
}

// Size returns the number of terms
func (v *Vocabulary) Size() int {
	return len(v.terms)
}

// Index returns the index of term and whether it is known
func (v *Vocabulary) Index(term string) (int, bool) {
	idx, ok := v.index[term]
	return idx, ok
}

// Contains reports whether term is in the vocabulary
func (v *Vocabulary) Contains(term string) bool {
	_, ok := v.index[term]
	return ok
}

// Term returns the term at index i
func (v *Vocabulary) Term(i int) string {
	return v.terms[i]
}

// Terms returns a copy of the terms in index order
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}
