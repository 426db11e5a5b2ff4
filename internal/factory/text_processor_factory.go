package factory

import (
	"github.com/mikey/spam-classifier/internal/config"
	"github.com/mikey/spam-classifier/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the body preprocessor used before scoring
// mail. It carries the size cap so the processor and the service agree on it.
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// MaxBodySize is the number of body bytes scored per message, 0 for no limit
func (f *TextProcessorFactory) MaxBodySize() int {
	if size := f.cfg.GetSpam().MaxBodySize; size > 0 {
		return size
	}
	return 0
}
