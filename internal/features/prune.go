package features

import "sort"

const (
	// DefaultTopK is the number of most frequent terms removed as stopwords
	DefaultTopK = 20
	// DefaultMinFrequency removes terms seen at most this many times
	DefaultMinFrequency = 1
)

// PruneOptions sets the frequency thresholds for Prune
type PruneOptions struct {
	// TopK most frequent terms are removed, ties broken by first occurrence
	TopK int
	// Terms with corpus frequency <= MinFrequency are removed
	MinFrequency int
}

// DefaultPruneOptions returns the thresholds used for training
func DefaultPruneOptions() PruneOptions {
	return PruneOptions{
		TopK:         DefaultTopK,
		MinFrequency: DefaultMinFrequency,
	}
}

// TermFrequency is a term and its count across a corpus
type TermFrequency struct {
	Term  string
	Count int
}

// Pruning is a removal decision computed from a training corpus
type Pruning struct {
	frequent []TermFrequency
	rare     []TermFrequency
	removed  map[string]struct{}
}

// Prune removes over- and under-frequent terms from every document of corpus.
// The input is not modified. Documents may come back empty.
func Prune(corpus [][]string, opts PruneOptions) ([][]string, *Pruning) {
	p := NewPruning(corpus, opts)
	return p.Apply(corpus), p
}

// NewPruning computes which terms Prune would remove from corpus
func NewPruning(corpus [][]string, opts PruneOptions) *Pruning {
	counts := make(map[string]int)
	var order []string
	for _, doc := range corpus {
		for _, term := range doc {
			if _, seen := counts[term]; !seen {
				order = append(order, term)
			}
			counts[term]++
		}
	}

	// order is first-occurrence order; a stable sort keeps it for equal counts
	ranked := make([]TermFrequency, len(order))
	for i, term := range order {
		ranked[i] = TermFrequency{Term: term, Count: counts[term]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })

	p := &Pruning{removed: make(map[string]struct{})}

	topK := opts.TopK
	if topK < 0 {
		topK = 0
	}
	if topK > len(ranked) {
		topK = len(ranked)
	}
	for _, tf := range ranked[:topK] {
		p.frequent = append(p.frequent, tf)
		p.removed[tf.Term] = struct{}{}
	}

	for _, term := range order {
		c := counts[term]
		if c > opts.MinFrequency {
			continue
		}
		p.rare = append(p.rare, TermFrequency{Term: term, Count: c})
		p.removed[term] = struct{}{}
	}

	return p
}

// Apply removes the pruned terms from every document, keeping the order of
// the remaining terms. Applying the same Pruning twice changes nothing.
func (p *Pruning) Apply(corpus [][]string) [][]string {
	out := make([][]string, len(corpus))
	for i, doc := range corpus {
		kept := make([]string, 0, len(doc))
		for _, term := range doc {
			if _, drop := p.removed[term]; !drop {
				kept = append(kept, term)
			}
		}
		out[i] = kept
	}
	return out
}

// Removes reports whether term is pruned
func (p *Pruning) Removes(term string) bool {
	_, ok := p.removed[term]
	return ok
}

// Removed returns every pruned term in lexicographic order
func (p *Pruning) Removed() []string {
	terms := make([]string, 0, len(p.removed))
	for term := range p.removed {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Frequent returns the terms pruned as over-frequent, most frequent first
func (p *Pruning) Frequent() []TermFrequency {
	return append([]TermFrequency(nil), p.frequent...)
}

// Rare returns the terms pruned as under-frequent in first-occurrence order.
// A term can be both frequent and rare in a tiny corpus.
func (p *Pruning) Rare() []TermFrequency {
	return append([]TermFrequency(nil), p.rare...)
}
