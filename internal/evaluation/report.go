package evaluation

import (
	"fmt"
	"strings"

	"github.com/mikey/spam-classifier/internal/core"
)

// ClassMetrics holds the scores of one class
type ClassMetrics struct {
	Label     string  `yaml:"label"`
	Precision float64 `yaml:"precision"`
	Recall    float64 `yaml:"recall"`
	F1        float64 `yaml:"f1"`
	Support   int     `yaml:"support"`
}

// Report is a binary classification report over a held-out set
type Report struct {
	Classes     []ClassMetrics `yaml:"classes"`
	Accuracy    float64        `yaml:"accuracy"`
	MacroAvg    ClassMetrics   `yaml:"macro_avg"`
	WeightedAvg ClassMetrics   `yaml:"weighted_avg"`
	Total       int            `yaml:"total"`
}

var reportLabels = []core.Label{core.NotSpam, core.Spam}

// Evaluate compares predicted labels with actual labels
func Evaluate(actual, predicted []core.Label) (*Report, error) {
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("%w: %d actual labels but %d predictions", core.ErrDimensionMismatch, len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return nil, fmt.Errorf("%w: nothing to evaluate", core.ErrEmptyCorpus)
	}

	report := &Report{Total: len(actual)}

	correct := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			correct++
		}
	}
	report.Accuracy = float64(correct) / float64(len(actual))

	for _, label := range presentLabels(actual, predicted) {
		var tp, fp, fn int
		for i := range actual {
			switch {
			case predicted[i] == label && actual[i] == label:
				tp++
			case predicted[i] == label:
				fp++
			case actual[i] == label:
				fn++
			}
		}

		m := ClassMetrics{
			Label:     label.String(),
			Precision: ratio(tp, tp+fp),
			Recall:    ratio(tp, tp+fn),
			Support:   tp + fn,
		}
		m.F1 = harmonic(m.Precision, m.Recall)
		report.Classes = append(report.Classes, m)
	}

	report.MacroAvg = ClassMetrics{Label: "macro avg", Support: report.Total}
	report.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: report.Total}
	n := float64(len(report.Classes))
	for _, m := range report.Classes {
		report.MacroAvg.Precision += m.Precision / n
		report.MacroAvg.Recall += m.Recall / n
		report.MacroAvg.F1 += m.F1 / n

		w := float64(m.Support) / float64(report.Total)
		report.WeightedAvg.Precision += m.Precision * w
		report.WeightedAvg.Recall += m.Recall * w
		report.WeightedAvg.F1 += m.F1 * w
	}

	return report, nil
}

// presentLabels keeps the labels that occur in actual or predicted so an
// absent class does not drag the macro average down
func presentLabels(actual, predicted []core.Label) []core.Label {
	var present []core.Label
	for _, label := range reportLabels {
		for i := range actual {
			if actual[i] == label || predicted[i] == label {
				present = append(present, label)
				break
			}
		}
	}
	return present
}

// Class returns the metrics of label
func (r *Report) Class(label core.Label) ClassMetrics {
	for _, m := range r.Classes {
		if m.Label == label.String() {
			return m
		}
	}
	return ClassMetrics{Label: label.String()}
}

// ratio returns 0 for an empty denominator
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func harmonic(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// String renders the report as a fixed-width table
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		writeRow(&b, m)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Total)
	writeRow(&b, r.MacroAvg)
	writeRow(&b, r.WeightedAvg)
	return b.String()
}

func writeRow(b *strings.Builder, m ClassMetrics) {
	fmt.Fprintf(b, "%14s %10.2f %10.2f %10.2f %10d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
}
