package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/features"
	"github.com/mikey/spam-classifier/internal/model"
	"github.com/mikey/spam-classifier/internal/svm"
)

const (
	// FormatVocabulary tags a serialized vocabulary blob
	FormatVocabulary = "spam-classifier/vocabulary"
	// FormatWeights tags a serialized weights blob
	FormatWeights = "spam-classifier/weights"
	// Version is the artifact layout version written by this package
	Version = 1
)

// envelope wraps each blob with the metadata needed to check that the pair
// belongs together
type envelope struct {
	Format    string          `json:"format"`
	Version   int             `json:"version"`
	ModelID   string          `json:"model_id"`
	CreatedAt time.Time       `json:"created_at"`
	Checksum  string          `json:"checksum"`
	Payload   json.RawMessage `json:"payload"`
}

type vocabularyPayload struct {
	Terms []string `json:"terms"`
}

type weightsPayload struct {
	Dim          int       `json:"dim"`
	Coefficients []float64 `json:"coefficients"`
	Bias         float64   `json:"bias"`
}

// Encode serializes a model into its vocabulary and weights blobs
func Encode(m *model.Model) (vocabulary, weights []byte, err error) {
	vocabulary, err = seal(m, FormatVocabulary, vocabularyPayload{
		Terms: m.Vocabulary().Terms(),
	})
	if err != nil {
		return nil, nil, err
	}

	w := m.Weights()
	weights, err = seal(m, FormatWeights, weightsPayload{
		Dim:          w.Dim(),
		Coefficients: w.Coefficients(),
		Bias:         w.Bias(),
	})
	if err != nil {
		return nil, nil, err
	}
	return vocabulary, weights, nil
}

func seal(m *model.Model, format string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", format, err)
	}

	data, err := json.Marshal(envelope{
		Format:    format,
		Version:   Version,
		ModelID:   m.ID(),
		CreatedAt: m.CreatedAt(),
		Checksum:  checksum(raw),
		Payload:   raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", format, err)
	}
	return data, nil
}

// Decode rebuilds a model from its two blobs. Any inconsistency between or
// within the blobs is reported as core.ErrModelCorrupt.
func Decode(vocabulary, weights []byte) (*model.Model, error) {
	vocabEnv, err := open(vocabulary, FormatVocabulary)
	if err != nil {
		return nil, err
	}
	weightsEnv, err := open(weights, FormatWeights)
	if err != nil {
		return nil, err
	}
	if vocabEnv.ModelID != weightsEnv.ModelID {
		return nil, fmt.Errorf("%w: vocabulary belongs to model %q but weights to %q",
			core.ErrModelCorrupt, vocabEnv.ModelID, weightsEnv.ModelID)
	}

	var vp vocabularyPayload
	if err := json.Unmarshal(vocabEnv.Payload, &vp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode vocabulary: %v", core.ErrModelCorrupt, err)
	}
	vocab, err := features.NewVocabulary(vp.Terms)
	if err != nil {
		return nil, err
	}

	var wp weightsPayload
	if err := json.Unmarshal(weightsEnv.Payload, &wp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode weights: %v", core.ErrModelCorrupt, err)
	}
	if wp.Dim != len(wp.Coefficients) {
		return nil, fmt.Errorf("%w: weights declare %d dimensions but hold %d coefficients",
			core.ErrModelCorrupt, wp.Dim, len(wp.Coefficients))
	}
	w, err := svm.NewWeights(wp.Coefficients, wp.Bias)
	if err != nil {
		return nil, err
	}

	return model.Restore(vocabEnv.ModelID, vocabEnv.CreatedAt, vocab, w)
}

func open(data []byte, format string) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", core.ErrModelCorrupt, format, err)
	}
	if env.Format != format {
		return nil, fmt.Errorf("%w: expected format %q, found %q", core.ErrModelCorrupt, format, env.Format)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("%w: unsupported %s version %d", core.ErrModelCorrupt, format, env.Version)
	}
	if env.ModelID == "" {
		return nil, fmt.Errorf("%w: %s has no model id", core.ErrModelCorrupt, format)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, env.Payload); err != nil {
		return nil, fmt.Errorf("%w: malformed %s payload: %v", core.ErrModelCorrupt, format, err)
	}
	if checksum(compact.Bytes()) != env.Checksum {
		return nil, fmt.Errorf("%w: %s checksum mismatch", core.ErrModelCorrupt, format)
	}
	return &env, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
