package factory

import (
	"fmt"

	"github.com/mikey/spam-classifier/internal/artifact"
	"github.com/mikey/spam-classifier/internal/classifier"
	"github.com/mikey/spam-classifier/internal/config"
	"github.com/mikey/spam-classifier/internal/dataset"
	"github.com/mikey/spam-classifier/internal/nlp"
	"go.uber.org/zap"
)

// ClassifierFactory creates the classifier service and its model reloader
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	store  artifact.Store
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, store artifact.Store) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// CreateService builds a classifier service backed by the English lexicon
func (f *ClassifierFactory) CreateService() (*classifier.Service, error) {
	lemmatizer, err := nlp.NewEnglishLemmatizer()
	if err != nil {
		return nil, fmt.Errorf("failed to load English lexicon: %w", err)
	}

	return classifier.NewService(
		nlp.NewNormalizer(lemmatizer),
		dataset.NewReader(f.logger),
		f.store,
		f.cfg.GetTraining().ClassifierOptions(),
		f.logger,
	), nil
}

// CreateReloader returns a reloader for service, or nil when no reload
// schedule is configured
func (f *ClassifierFactory) CreateReloader(service *classifier.Service) (*classifier.Reloader, error) {
	schedule := f.cfg.GetModel().ReloadSchedule
	if schedule == "" {
		return nil, nil
	}
	return classifier.NewReloader(service, schedule, f.logger)
}
