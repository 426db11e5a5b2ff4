package config

import (
	"fmt"
	"time"

	"github.com/mikey/spam-classifier/internal/classifier"
	"github.com/mikey/spam-classifier/internal/features"
	"github.com/mikey/spam-classifier/internal/svm"
)

// ModelConfig locates the model artifacts
type ModelConfig struct {
	Store          string
	Dir            string
	SQLitePath     string
	MySQLDSN       string
	PostgresDSN    string
	ReloadSchedule string
}

// TrainingConfig represents the training pipeline settings
type TrainingConfig struct {
	CorpusPath        string
	TestSize          float64
	Seed              int64
	PruneTopK         int
	PruneMinFrequency int
	ReportPath        string
	SVM               SVMConfig
}

// SVMConfig represents the linear classifier solver settings
type SVMConfig struct {
	C         float64
	MaxIter   int
	Tolerance float64
}

// SpamConfig represents the filter decision settings
type SpamConfig struct {
	Threshold          float64
	WhitelistedDomains []string
	MaxBodySize        int
}

// CacheConfig represents the prediction cache settings
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// GetModel returns the model store configuration
func (c *Config) GetModel() ModelConfig {
	return ModelConfig{
		Store:          c.GetString("model.store"),
		Dir:            c.GetString("model.dir"),
		SQLitePath:     c.GetString("model.sqlite_path"),
		MySQLDSN:       c.GetString("model.mysql_dsn"),
		PostgresDSN:    c.GetString("model.postgres_dsn"),
		ReloadSchedule: c.GetString("model.reload_schedule"),
	}
}

// GetTraining returns the training configuration
func (c *Config) GetTraining() TrainingConfig {
	return TrainingConfig{
		CorpusPath:        c.GetString("training.corpus_path"),
		TestSize:          c.GetFloat64("training.test_size"),
		Seed:              c.GetInt64("training.seed"),
		PruneTopK:         c.GetInt("training.prune_top_k"),
		PruneMinFrequency: c.GetInt("training.prune_min_frequency"),
		ReportPath:        c.GetString("training.report_path"),
		SVM:               c.GetSVM(),
	}
}

// GetSVM returns the solver configuration
func (c *Config) GetSVM() SVMConfig {
	return SVMConfig{
		C:         c.GetFloat64("training.svm.c"),
		MaxIter:   c.GetInt("training.svm.max_iter"),
		Tolerance: c.GetFloat64("training.svm.tolerance"),
	}
}

// GetSpam returns the filter decision configuration
func (c *Config) GetSpam() SpamConfig {
	return SpamConfig{
		Threshold:          c.GetFloat64("spam.threshold"),
		WhitelistedDomains: c.GetStringSlice("spam.whitelisted_domains"),
		MaxBodySize:        c.GetInt("spam.max_body_size"),
	}
}

// GetCache returns the prediction cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache TTL: %w", err)
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}

// ClassifierOptions converts the training configuration into classifier options
func (t TrainingConfig) ClassifierOptions() classifier.Options {
	opts := svm.DefaultOptions()
	opts.C = t.SVM.C
	opts.MaxIter = t.SVM.MaxIter
	opts.Tolerance = t.SVM.Tolerance
	opts.Seed = t.Seed

	return classifier.Options{
		TestSize: t.TestSize,
		Seed:     t.Seed,
		Prune: features.PruneOptions{
			TopK:         t.PruneTopK,
			MinFrequency: t.PruneMinFrequency,
		},
		SVM: opts,
	}
}
