package svm

import (
	"fmt"
	"math"
	"sort"

	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/features"
)

// Weights is a trained linear decision function score(v) = w·v + b.
// It is immutable.
type Weights struct {
	coef []float64
	bias float64
}

// NewWeights restores weights from a coefficient vector and bias
func NewWeights(coef []float64, bias float64) (*Weights, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("%w: weights have no coefficients", core.ErrModelCorrupt)
	}
	if !finite(bias) {
		return nil, fmt.Errorf("%w: bias is not finite", core.ErrModelCorrupt)
	}
	for i, c := range coef {
		if !finite(c) {
			return nil, fmt.Errorf("%w: coefficient %d is not finite", core.ErrModelCorrupt, i)
		}
	}

	owned := make([]float64, len(coef))
	copy(owned, coef)
	return &Weights{coef: owned, bias: bias}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Dim returns the number of coefficients
func (w *Weights) Dim() int {
	return len(w.coef)
}

// Bias returns the intercept
func (w *Weights) Bias() float64 {
	return w.bias
}

// Coefficients returns a copy of the coefficient vector
func (w *Weights) Coefficients() []float64 {
	out := make([]float64, len(w.coef))
	copy(out, w.coef)
	return out
}

// Score returns the decision value w·v + b
func (w *Weights) Score(v features.FeatureVector) (float64, error) {
	if v.Dim() != len(w.coef) {
		return 0, fmt.Errorf("%w: vector has %d features, weights have %d", core.ErrDimensionMismatch, v.Dim(), len(w.coef))
	}

	score := w.bias
	for _, e := range v.Entries() {
		score += w.coef[e.Index] * float64(e.Count)
	}
	return score, nil
}

// Contribution is the share of one feature in a decision value
type Contribution struct {
	Index  int
	Count  int
	Weight float64
	Value  float64
}

// Contributions returns the per-feature terms of the decision value, largest
// magnitude first. The bias is not included.
func (w *Weights) Contributions(v features.FeatureVector) ([]Contribution, error) {
	if v.Dim() != len(w.coef) {
		return nil, fmt.Errorf("%w: vector has %d features, weights have %d", core.ErrDimensionMismatch, v.Dim(), len(w.coef))
	}

	out := make([]Contribution, 0, v.NNZ())
	for _, e := range v.Entries() {
		weight := w.coef[e.Index]
		out = append(out, Contribution{
			Index:  e.Index,
			Count:  e.Count,
			Weight: weight,
			Value:  weight * float64(e.Count),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Value) > math.Abs(out[j].Value)
	})
	return out, nil
}

// Predict labels v as Spam when its decision value is at least zero
func Predict(v features.FeatureVector, w *Weights) (core.Label, error) {
	score, err := w.Score(v)
	if err != nil {
		return core.NotSpam, err
	}
	return Decide(score), nil
}

// Decide maps a decision value to a label
func Decide(score float64) core.Label {
	if score >= 0 {
		return core.Spam
	}
	return core.NotSpam
}
