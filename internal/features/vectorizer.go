package features

import (
	"fmt"

	"github.com/mikey/spam-classifier/internal/core"
)

// Fit builds a vocabulary from every distinct term in corpus
func Fit(corpus [][]string) (*Vocabulary, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("%w: no documents", core.ErrEmptyCorpus)
	}

	set := make(map[string]struct{})
	for _, doc := range corpus {
		for _, term := range doc {
			set[term] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: no terms in %d documents", core.ErrEmptyCorpus, len(corpus))
	}

	return newSortedVocabulary(set), nil
}

// Transform counts the terms of doc against vocab. Terms missing from vocab
// are ignored.
func Transform(doc []string, vocab *Vocabulary) FeatureVector {
	counts := make(map[int]int)
	for _, term := range doc {
		if idx, ok := vocab.Index(term); ok {
			counts[idx]++
		}
	}
	return NewFeatureVector(vocab.Size(), counts)
}

// TransformAll transforms every document of corpus
func TransformAll(corpus [][]string, vocab *Vocabulary) []FeatureVector {
	vectors := make([]FeatureVector, len(corpus))
	for i, doc := range corpus {
		vectors[i] = Transform(doc, vocab)
	}
	return vectors
}
