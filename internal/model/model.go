package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/features"
	"github.com/mikey/spam-classifier/internal/svm"
)

// Model pairs a frozen vocabulary with the weights trained against it. A Model
// is immutable and safe to share between goroutines.
type Model struct {
	id        string
	createdAt time.Time
	vocab     *features.Vocabulary
	weights   *svm.Weights
}

// New creates a model with a fresh ID
func New(vocab *features.Vocabulary, weights *svm.Weights) (*Model, error) {
	return Restore(uuid.NewString(), time.Now().UTC(), vocab, weights)
}

// Restore rebuilds a model from stored parts. The weights must have one
// coefficient per vocabulary term.
func Restore(id string, createdAt time.Time, vocab *features.Vocabulary, weights *svm.Weights) (*Model, error) {
	if vocab == nil || weights == nil {
		return nil, fmt.Errorf("%w: model needs both vocabulary and weights", core.ErrModelCorrupt)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: model has no id", core.ErrModelCorrupt)
	}
	if weights.Dim() != vocab.Size() {
		return nil, fmt.Errorf("%w: weights have %d coefficients for %d terms", core.ErrModelCorrupt, weights.Dim(), vocab.Size())
	}

	return &Model{
		id:        id,
		createdAt: createdAt,
		vocab:     vocab,
		weights:   weights,
	}, nil
}

// ID identifies the model
func (m *Model) ID() string { return m.id }

// CreatedAt is the training time
func (m *Model) CreatedAt() time.Time { return m.createdAt }

// Vocabulary returns the frozen vocabulary
func (m *Model) Vocabulary() *features.Vocabulary { return m.vocab }

// Weights returns the trained weights
func (m *Model) Weights() *svm.Weights { return m.weights }

// TermContribution is the share of one known term in a decision
type TermContribution struct {
	Term  string
	Count int
	Value float64
}

// Decision is the outcome of classifying one document
type Decision struct {
	Label         core.Label
	Score         float64
	KnownTerms    int
	Contributions []TermContribution
}

// Vectorize encodes terms against the model vocabulary. Unknown terms are ignored.
func (m *Model) Vectorize(terms []string) features.FeatureVector {
	return features.Transform(terms, m.vocab)
}

// Predict labels already normalized terms
func (m *Model) Predict(terms []string) (core.Label, error) {
	return svm.Predict(m.Vectorize(terms), m.weights)
}

// Classify labels already normalized terms and explains the decision
func (m *Model) Classify(terms []string) (*Decision, error) {
	v := m.Vectorize(terms)

	score, err := m.weights.Score(v)
	if err != nil {
		return nil, err
	}
	contribs, err := m.weights.Contributions(v)
	if err != nil {
		return nil, err
	}

	d := &Decision{
		Label:         svm.Decide(score),
		Score:         score,
		KnownTerms:    v.NNZ(),
		Contributions: make([]TermContribution, len(contribs)),
	}
	for i, c := range contribs {
		d.Contributions[i] = TermContribution{
			Term:  m.vocab.Term(c.Index),
			Count: c.Count,
			Value: c.Value,
		}
	}
	return d, nil
}
