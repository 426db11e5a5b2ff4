package svm

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/features"
)

// Options configures the solver
type Options struct {
	// C is the soft-margin penalty
	C float64
	// MaxIter bounds the number of passes over the data
	MaxIter int
	// Tolerance on the projected gradient spread used as stopping criterion
	Tolerance float64
	// Seed drives the visiting order, fixing it makes training reproducible
	Seed int64
	// BiasScale is the value of the constant feature that carries the intercept
	BiasScale float64
}

// DefaultOptions returns the solver defaults
func DefaultOptions() Options {
	return Options{
		C:         1.0,
		MaxIter:   1000,
		Tolerance: 1e-4,
		Seed:      42,
		BiasScale: 1.0,
	}
}

func (o Options) validate() error {
	if o.C <= 0 || !finite(o.C) {
		return fmt.Errorf("%w: C must be positive, got %v", core.ErrInput, o.C)
	}
	if o.MaxIter <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", core.ErrInput, o.MaxIter)
	}
	if o.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive, got %v", core.ErrInput, o.Tolerance)
	}
	if o.BiasScale < 0 {
		return fmt.Errorf("%w: bias scale must not be negative, got %v", core.ErrInput, o.BiasScale)
	}
	return nil
}

// Result is the outcome of a training run
type Result struct {
	Weights    *Weights
	Iterations int
	Converged  bool
}

// Train fits a soft-margin linear SVM (L2-regularized, squared hinge loss) by
// dual coordinate descent. The intercept is learned as the weight of an extra
// constant feature. Identical inputs and options give identical weights.
func Train(vectors []features.FeatureVector, labels []core.Label, opts Options) (*Result, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no training samples", core.ErrDimensionMismatch)
	}
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("%w: %d vectors but %d labels", core.ErrDimensionMismatch, len(vectors), len(labels))
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	dim := vectors[0].Dim()
	if dim == 0 {
		return nil, fmt.Errorf("%w: vectors have no features", core.ErrDimensionMismatch)
	}

	n := len(vectors)
	y := make([]float64, n)
	qd := make([]float64, n)
	diag := 0.5 / opts.C
	s := opts.BiasScale

	for i, v := range vectors {
		if v.Dim() != dim {
			return nil, fmt.Errorf("%w: sample %d has %d features, expected %d", core.ErrDimensionMismatch, i, v.Dim(), dim)
		}
		switch labels[i] {
		case core.Spam:
			y[i] = 1
		case core.NotSpam:
			y[i] = -1
		default:
			return nil, fmt.Errorf("%w: unknown label %d for sample %d", core.ErrInput, labels[i], i)
		}
		qd[i] = diag + v.SquaredNorm() + s*s
	}

	w := make([]float64, dim)
	var wb float64
	alpha := make([]float64, n)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	iter := 0
	converged := false
	for iter < opts.MaxIter {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		pgMax := math.Inf(-1)
		pgMin := math.Inf(1)
		for _, i := range order {
			x := vectors[i]

			margin := wb * s
			for _, e := range x.Entries() {
				margin += w[e.Index] * float64(e.Count)
			}
			g := y[i]*margin - 1 + diag*alpha[i]

			pg := g
			if alpha[i] == 0 && g > 0 {
				pg = 0
			}
			pgMax = math.Max(pgMax, pg)
			pgMin = math.Min(pgMin, pg)

			if math.Abs(pg) < 1e-12 {
				continue
			}

			old := alpha[i]
			alpha[i] = math.Max(old-g/qd[i], 0)
			d := (alpha[i] - old) * y[i]
			for _, e := range x.Entries() {
				w[e.Index] += d * float64(e.Count)
			}
			wb += d * s
		}
		iter++

		if pgMax-pgMin <= opts.Tolerance {
			converged = true
			break
		}
	}

	weights, err := NewWeights(w, wb*s)
	if err != nil {
		return nil, fmt.Errorf("failed to build weights: %w", err)
	}

	return &Result{
		Weights:    weights,
		Iterations: iter,
		Converged:  converged,
	}, nil
}
