package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/model"
	"go.uber.org/zap"
)

const (
	// VocabularyFile is the vocabulary blob name inside the model directory
	VocabularyFile = "vocabulary.json"
	// WeightsFile is the weights blob name inside the model directory
	WeightsFile = "weights.json"
)

// FileStore keeps the two model blobs as files in one directory
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		dir:    dir,
		logger: logger,
	}
}

// Dir returns the model directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes both blobs through temporary files renamed into place, the
// vocabulary first. A crash between the renames leaves blobs with different
// model IDs, which Load reports as corrupt.
func (s *FileStore) Save(ctx context.Context, m *model.Model) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	vocabulary, weights, err := Encode(m)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, VocabularyFile), vocabulary); err != nil {
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, WeightsFile), weights); err != nil {
		return fmt.Errorf("failed to write weights: %w", err)
	}

	s.logger.Info("Model saved",
		zap.String("model_id", m.ID()),
		zap.String("dir", s.dir),
		zap.Int("vocabulary_size", m.Vocabulary().Size()))
	return nil
}

// Load reads both blobs. When only one of them exists the pair is treated as
// a partial write and reported as corrupt.
func (s *FileStore) Load(ctx context.Context) (*model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vocabPath := filepath.Join(s.dir, VocabularyFile)
	weightsPath := filepath.Join(s.dir, WeightsFile)

	vocabulary, vocabErr := readFile(vocabPath)
	weights, weightsErr := readFile(weightsPath)

	vocabMissing := errors.Is(vocabErr, fs.ErrNotExist)
	weightsMissing := errors.Is(weightsErr, fs.ErrNotExist)
	switch {
	case vocabMissing && weightsMissing:
		return nil, fmt.Errorf("%w: no model in %s", core.ErrMissingArtifact, s.dir)
	case vocabMissing:
		return nil, fmt.Errorf("%w: %s exists without %s", core.ErrModelCorrupt, WeightsFile, VocabularyFile)
	case weightsMissing:
		return nil, fmt.Errorf("%w: %s exists without %s", core.ErrModelCorrupt, VocabularyFile, WeightsFile)
	case vocabErr != nil:
		return nil, fmt.Errorf("failed to read vocabulary: %w", vocabErr)
	case weightsErr != nil:
		return nil, fmt.Errorf("failed to read weights: %w", weightsErr)
	}

	m, err := Decode(vocabulary, weights)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Model loaded",
		zap.String("model_id", m.ID()),
		zap.String("dir", s.dir),
		zap.Int("vocabulary_size", m.Vocabulary().Size()))
	return m, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
