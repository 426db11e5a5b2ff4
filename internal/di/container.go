package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/spam-classifier/internal/artifact"
	"github.com/mikey/spam-classifier/internal/classifier"
	"github.com/mikey/spam-classifier/internal/config"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/factory"
	"github.com/mikey/spam-classifier/internal/logging"
	"github.com/mikey/spam-classifier/internal/ports"
	"github.com/mikey/spam-classifier/internal/utils"
	"github.com/mikey/spam-classifier/internal/whitelist"
)

// BuildContainer creates the container used by the filter daemon and the
// trainer. configPath may be empty to search the standard locations.
func BuildContainer(configPath string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.Load(configPath)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register whitelist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetSpam().WhitelistedDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register spam filter service
	if err := container.Provide(func(
		c core.Classifier,
		cache core.CacheRepository,
		cfg *config.Config,
		logger *zap.Logger,
		checker *whitelist.Checker,
		textProcessor *utils.TextProcessor,
		tpf *factory.TextProcessorFactory,
	) (*core.SpamFilterService, error) {
		cacheCfg, err := cfg.GetCache()
		if err != nil {
			return nil, err
		}
		return core.NewSpamFilterService(
			c,
			cache,
			logger,
			cacheCfg.Enabled,
			cacheCfg.TTL,
			cfg.GetSpam().Threshold,
			checker,
			textProcessor,
			tpf.MaxBodySize(),
		), nil
	}); err != nil {
		return nil, err
	}

	if err := provideEmailFilter(container); err != nil {
		return nil, err
	}

	return container, nil
}

// provideClassifier registers the model store, the classifier service and
// its reloader
func provideClassifier(container *dig.Container) error {
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.StoreFactory) (artifact.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ClassifierFactory) (*classifier.Service, error) {
		return f.CreateService()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(s *classifier.Service) core.Classifier {
		return s
	}); err != nil {
		return err
	}
	return container.Provide(func(f *factory.ClassifierFactory, s *classifier.Service) (*classifier.Reloader, error) {
		return f.CreateReloader(s)
	})
}

func provideEmailFilter(container *dig.Container) error {
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return err
	}
	return container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	})
}
