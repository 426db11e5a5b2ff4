package artifact

import (
	"context"

	"github.com/mikey/spam-classifier/internal/model"
)

// Store persists a model as a vocabulary and weights pair
type Store interface {
	// Save writes both artifacts of m
	Save(ctx context.Context, m *model.Model) error

	// Load reads the stored model. It returns core.ErrMissingArtifact when
	// nothing was saved and core.ErrModelCorrupt when the stored pair is
	// unusable.
	Load(ctx context.Context) (*model.Model, error)
}
