package classifier

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mikey/spam-classifier/internal/artifact"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/dataset"
	"github.com/mikey/spam-classifier/internal/evaluation"
	"github.com/mikey/spam-classifier/internal/features"
	"github.com/mikey/spam-classifier/internal/model"
	"github.com/mikey/spam-classifier/internal/nlp"
	"github.com/mikey/spam-classifier/internal/svm"
	"go.uber.org/zap"
)

// ErrNoModel is returned by predictions made before any model was trained or loaded
var ErrNoModel = fmt.Errorf("%w: no model loaded, train a model first", core.ErrMissingArtifact)

// explainTerms bounds the number of terms listed in an explanation
const explainTerms = 5

// Options configures a training run
type Options struct {
	TestSize float64
	Seed     int64
	Prune    features.PruneOptions
	SVM      svm.Options
}

// DefaultOptions returns the training defaults
func DefaultOptions() Options {
	return Options{
		TestSize: 0.3,
		Seed:     42,
		Prune:    features.DefaultPruneOptions(),
		SVM:      svm.DefaultOptions(),
	}
}

// Service trains, loads and applies spam models. The current model is swapped
// atomically so predictions in flight always see a complete model.
type Service struct {
	normalizer *nlp.Normalizer
	reader     *dataset.Reader
	store      artifact.Store
	opts       Options
	logger     *zap.Logger
	current    atomic.Pointer[model.Model]
}

// NewService creates a new classifier service
func NewService(
	normalizer *nlp.Normalizer,
	reader *dataset.Reader,
	store artifact.Store,
	opts Options,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reader == nil {
		reader = dataset.NewReader(logger)
	}
	return &Service{
		normalizer: normalizer,
		reader:     reader,
		store:      store,
		opts:       opts,
		logger:     logger,
	}
}

// Current returns the model in use, or nil
func (s *Service) Current() *model.Model {
	return s.current.Load()
}

// Swap installs m as the current model and returns the previous one
func (s *Service) Swap(m *model.Model) *model.Model {
	old := s.current.Swap(m)
	if m != nil {
		s.logger.Info("Model activated",
			zap.String("model_id", m.ID()),
			zap.Time("created_at", m.CreatedAt()),
			zap.Int("vocabulary_size", m.Vocabulary().Size()))
	}
	return old
}

// ModelID identifies the current model, empty when none is loaded
func (s *Service) ModelID() string {
	if m := s.current.Load(); m != nil {
		return m.ID()
	}
	return ""
}

// LoadModel reads the stored model and makes it current
func (s *Service) LoadModel(ctx context.Context) (*model.Model, error) {
	m, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.Swap(m)
	return m, nil
}

// TrainModel trains a model on the corpus at corpusPath, saves it and makes
// it current
func (s *Service) TrainModel(ctx context.Context, corpusPath string) (*TrainingReport, error) {
	result, err := s.reader.Read(corpusPath)
	if err != nil {
		return nil, err
	}

	_, report, err := s.TrainCorpus(ctx, result.Documents)
	if err != nil {
		return nil, err
	}
	report.CorpusPath = corpusPath
	report.RowsSkipped = result.Skipped
	return report, nil
}

// TrainCorpus trains on documents already in memory, saves the model and
// makes it current. Documents that fail normalization are skipped.
func (s *Service) TrainCorpus(ctx context.Context, corpus core.Corpus) (*model.Model, *TrainingReport, error) {
	started := time.Now()
	report := &TrainingReport{Documents: len(corpus)}

	docs := make([][]string, 0, len(corpus))
	labels := make([]core.Label, 0, len(corpus))
	for i, doc := range corpus {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		terms, err := s.normalizer.Normalize(doc.Text)
		if err != nil {
			s.logger.Warn("Skipping document", zap.Int("index", i), zap.Error(err))
			report.DocumentsSkipped++
			continue
		}
		docs = append(docs, terms)
		labels = append(labels, doc.Label)
	}
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("%w: no usable documents", core.ErrEmptyCorpus)
	}

	pruned, pruning := features.Prune(docs, s.opts.Prune)
	for _, tf := range pruning.Frequent() {
		report.PrunedFrequent = append(report.PrunedFrequent, tf.Term)
	}
	report.PrunedRare = len(pruning.Rare())
	for _, doc := range pruned {
		if len(doc) == 0 {
			report.EmptyAfterPruning++
		}
	}

	trainIdx, testIdx, err := evaluation.Split(len(pruned), s.opts.TestSize, s.opts.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to split corpus: %w", err)
	}
	trainDocs, trainLabels := subset(pruned, labels, trainIdx)
	testDocs, testLabels := subset(pruned, labels, testIdx)
	report.TrainSize = len(trainDocs)
	report.TestSize = len(testDocs)

	vocab, err := features.Fit(trainDocs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build vocabulary: %w", err)
	}
	report.VocabularySize = vocab.Size()

	result, err := svm.Train(features.TransformAll(trainDocs, vocab), trainLabels, s.opts.SVM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to train classifier: %w", err)
	}
	report.Iterations = result.Iterations
	report.Converged = result.Converged
	if !result.Converged {
		s.logger.Warn("Classifier did not converge", zap.Int("iterations", result.Iterations))
	}

	m, err := model.New(vocab, result.Weights)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to assemble model: %w", err)
	}
	report.ModelID = m.ID()
	report.CreatedAt = m.CreatedAt()

	if len(testDocs) > 0 {
		predicted := make([]core.Label, len(testDocs))
		for i, doc := range testDocs {
			predicted[i], err = m.Predict(doc)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to evaluate model: %w", err)
			}
		}
		report.Evaluation, err = evaluation.Evaluate(testLabels, predicted)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to evaluate model: %w", err)
		}
	}

	if err := s.store.Save(ctx, m); err != nil {
		return nil, nil, fmt.Errorf("failed to save model: %w", err)
	}
	s.Swap(m)

	report.Duration = time.Since(started)
	s.logger.Info("Model trained",
		zap.String("model_id", m.ID()),
		zap.Int("documents", len(docs)),
		zap.Int("train_size", report.TrainSize),
		zap.Int("test_size", report.TestSize),
		zap.Int("vocabulary_size", vocab.Size()),
		zap.Int("iterations", result.Iterations),
		zap.Duration("duration", report.Duration))

	return m, report, nil
}

func subset(docs [][]string, labels []core.Label, idx []int) ([][]string, []core.Label) {
	outDocs := make([][]string, len(idx))
	outLabels := make([]core.Label, len(idx))
	for i, j := range idx {
		outDocs[i] = docs[j]
		outLabels[i] = labels[j]
	}
	return outDocs, outLabels
}

// Predict classifies raw text with the current model. The text is normalized
// and encoded against the frozen vocabulary without any pruning.
func (s *Service) Predict(ctx context.Context, rawText string) (core.Label, error) {
	if err := ctx.Err(); err != nil {
		return core.NotSpam, err
	}
	m := s.current.Load()
	if m == nil {
		return core.NotSpam, ErrNoModel
	}

	terms, err := s.normalizer.Normalize(rawText)
	if err != nil {
		return core.NotSpam, err
	}
	return m.Predict(terms)
}

// Classify implements core.Classifier
func (s *Service) Classify(ctx context.Context, text string) (*core.SpamAnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := s.current.Load()
	if m == nil {
		return nil, ErrNoModel
	}

	terms, err := s.normalizer.Normalize(text)
	if err != nil {
		return nil, err
	}
	decision, err := m.Classify(terms)
	if err != nil {
		return nil, err
	}

	return &core.SpamAnalysisResult{
		IsSpam:      decision.Label == core.Spam,
		Score:       decision.Score,
		Explanation: explain(decision),
		AnalyzedAt:  time.Now(),
		ModelUsed:   m.ID(),
	}, nil
}

func explain(d *model.Decision) string {
	if d.KnownTerms == 0 {
		return fmt.Sprintf("%s by bias %.3f, no known terms", d.Label, d.Score)
	}

	n := len(d.Contributions)
	if n > explainTerms {
		n = explainTerms
	}
	parts := make([]string, n)
	for i, c := range d.Contributions[:n] {
		parts[i] = fmt.Sprintf("%s(%+.3f)", c.Term, c.Value)
	}
	return fmt.Sprintf("%s with score %.3f from %d known terms: %s",
		d.Label, d.Score, d.KnownTerms, strings.Join(parts, ", "))
}
