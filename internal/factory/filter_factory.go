package factory

import (
	"fmt"
	"os"

	"github.com/mikey/spam-classifier/internal/adapters/filter"
	"github.com/mikey/spam-classifier/internal/config"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg         *config.Config
	logger      *zap.Logger
	spamService *core.SpamFilterService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, spamService *core.SpamFilterService) *FilterFactory {
	return &FilterFactory{
		cfg:         cfg,
		logger:      logger,
		spamService: spamService,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	filterType := f.cfg.GetString("server.filter_type")

	switch filterType {
	case "postfix":
		return filter.NewPostfixFilter(f.spamService, f.logger, filter.PostfixConfig{
			ListenAddr:    f.cfg.GetString("server.listen_address"),
			PostfixAddr:   f.cfg.GetString("server.postfix_address"),
			BlockSpam:     f.cfg.GetBool("server.block_spam"),
			SpamHeader:    f.cfg.GetString("server.headers.spam"),
			ScoreHeader:   f.cfg.GetString("server.headers.score"),
			ReasonHeader:  f.cfg.GetString("server.headers.reason"),
			ModelHeader:   f.cfg.GetString("server.headers.model"),
			SubjectPrefix: f.cfg.GetString("server.subject_prefix"),
			ModifySubject: f.cfg.GetBool("server.modify_subject"),
		}), nil
	case "cli":
		return filter.NewCliFilter(
			f.spamService,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
			os.Stdout,
		)
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
