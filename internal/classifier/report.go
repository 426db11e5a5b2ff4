package classifier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikey/spam-classifier/internal/evaluation"
	"gopkg.in/yaml.v3"
)

// TrainingReport describes a finished training run
type TrainingReport struct {
	ModelID           string             `yaml:"model_id"`
	CreatedAt         time.Time          `yaml:"created_at"`
	CorpusPath        string             `yaml:"corpus_path,omitempty"`
	Documents         int                `yaml:"documents"`
	RowsSkipped       int                `yaml:"rows_skipped"`
	DocumentsSkipped  int                `yaml:"documents_skipped"`
	EmptyAfterPruning int                `yaml:"empty_after_pruning"`
	PrunedFrequent    []string           `yaml:"pruned_frequent"`
	PrunedRare        int                `yaml:"pruned_rare"`
	TrainSize         int                `yaml:"train_size"`
	TestSize          int                `yaml:"test_size"`
	VocabularySize    int                `yaml:"vocabulary_size"`
	Iterations        int                `yaml:"iterations"`
	Converged         bool               `yaml:"converged"`
	Duration          time.Duration      `yaml:"duration"`
	Evaluation        *evaluation.Report `yaml:"evaluation,omitempty"`
}

// Summary renders the report for terminal output
func (r *TrainingReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model %s trained on %d documents (%d train / %d test)\n",
		r.ModelID, r.TrainSize+r.TestSize, r.TrainSize, r.TestSize)
	fmt.Fprintf(&b, "Vocabulary: %d terms, pruned %d frequent and %d rare\n",
		r.VocabularySize, len(r.PrunedFrequent), r.PrunedRare)
	if skipped := r.RowsSkipped + r.DocumentsSkipped; skipped > 0 {
		fmt.Fprintf(&b, "Skipped: %d rows\n", skipped)
	}
	fmt.Fprintf(&b, "Solver: %d iterations, converged=%t\n", r.Iterations, r.Converged)
	if r.Evaluation != nil {
		b.WriteString("\nClassification Report:\n")
		b.WriteString(r.Evaluation.String())
	}
	return b.String()
}

// WriteYAML stores the report at path
func (r *TrainingReport) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
