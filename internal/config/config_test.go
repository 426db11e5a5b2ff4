package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	model := cfg.GetModel()
	assert.Equal(t, "file", model.Store)
	assert.Equal(t, "./spam_nlp", model.Dir)
	assert.Empty(t, model.ReloadSchedule)

	training := cfg.GetTraining()
	assert.Equal(t, "mail_data.csv", training.CorpusPath)
	assert.InDelta(t, 0.3, training.TestSize, 1e-12)
	assert.Equal(t, int64(42), training.Seed)
	assert.Equal(t, 20, training.PruneTopK)
	assert.Equal(t, 1, training.PruneMinFrequency)
	assert.Equal(t, SVMConfig{C: 1, MaxIter: 1000, Tolerance: 0.0001}, training.SVM)

	spam := cfg.GetSpam()
	assert.Zero(t, spam.Threshold)
	assert.Empty(t, spam.WhitelistedDomains)
	assert.Equal(t, 65536, spam.MaxBodySize)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cache.TTL)
	assert.Equal(t, time.Hour, cache.CleanupFrequency)
}

func TestClassifierOptions(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("training.prune_top_k", 5)
	cfg.Set("training.seed", 7)
	cfg.Set("training.svm.c", 0.5)

	opts := cfg.GetTraining().ClassifierOptions()
	assert.Equal(t, 5, opts.Prune.TopK)
	assert.Equal(t, 1, opts.Prune.MinFrequency)
	assert.Equal(t, int64(7), opts.Seed)
	assert.Equal(t, int64(7), opts.SVM.Seed)
	assert.InDelta(t, 0.5, opts.SVM.C, 1e-12)
	assert.InDelta(t, 1.0, opts.SVM.BiasScale, 1e-12)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
model:
  store: sqlite
  sqlite_path: /tmp/models.db
training:
  test_size: 0.2
spam:
  whitelisted_domains:
    - example.com
cache:
  ttl: 10m
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.GetModel().Store)
	assert.Equal(t, "/tmp/models.db", cfg.GetModel().SQLitePath)
	assert.InDelta(t, 0.2, cfg.GetTraining().TestSize, 1e-12)
	assert.Equal(t, []string{"example.com"}, cfg.GetSpam().WhitelistedDomains)
	assert.Equal(t, 1000, cfg.GetTraining().SVM.MaxIter)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cache.TTL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SPAM_FILTER_MODEL_DIR", "/var/lib/spam")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/spam", cfg.GetModel().Dir)
}

func TestInvalidCacheDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("cache.ttl", "soon")

	_, err := cfg.GetCache()
	assert.Error(t, err)
}
