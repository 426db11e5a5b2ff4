package di

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/spam-classifier/internal/classifier"
	"github.com/mikey/spam-classifier/internal/config"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trainingCorpus = core.Corpus{
	{Text: "win money now", Label: core.Spam},
	{Text: "free money, win big", Label: core.Spam},
	{Text: "claim free cash now", Label: core.Spam},
	{Text: "lunch at noon", Label: core.NotSpam},
	{Text: "meet at noon tomorrow", Label: core.NotSpam},
	{Text: "dinner tomorrow at home", Label: core.NotSpam},
}

func writeConfig(t *testing.T, modelDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
model:
  store: file
  dir: %s
training:
  test_size: 0
  prune_top_k: 0
  prune_min_frequency: 0
server:
  filter_type: cli
cache:
  type: memory
  cleanup_frequency: 0s
logging:
  level: error
`, modelDir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBuildContainerTrainAndAnalyze(t *testing.T) {
	modelDir := t.TempDir()
	container, err := BuildContainer(writeConfig(t, modelDir))
	require.NoError(t, err)

	err = container.Invoke(func(svc *classifier.Service, spam *core.SpamFilterService, reloader *classifier.Reloader) error {
		assert.Nil(t, reloader)

		_, report, err := svc.TrainCorpus(context.Background(), trainingCorpus)
		if err != nil {
			return err
		}
		assert.Equal(t, 6, report.TrainSize)

		result, err := spam.AnalyzeEmail(context.Background(), &core.Email{Body: "win free money"})
		if err != nil {
			return err
		}
		assert.True(t, result.IsSpam)
		assert.Equal(t, report.ModelID, result.ModelUsed)

		result, err = spam.AnalyzeEmail(context.Background(), &core.Email{Body: "lunch at noon tomorrow"})
		if err != nil {
			return err
		}
		assert.False(t, result.IsSpam)
		return nil
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(modelDir, "vocabulary.json"))
	assert.FileExists(t, filepath.Join(modelDir, "weights.json"))
}

func TestBuildContainerRejectsUnknownStore(t *testing.T) {
	path := writeConfig(t, t.TempDir())
	container, err := BuildContainer(path)
	require.NoError(t, err)

	err = container.Invoke(func(cfg *config.Config) {
		cfg.Set("model.store", "s3")
	})
	require.NoError(t, err)

	err = container.Invoke(func(*classifier.Service) {})
	assert.Error(t, err)
}

func TestBuildCLIContainer(t *testing.T) {
	modelDir := t.TempDir()

	trainer, err := BuildContainer(writeConfig(t, modelDir))
	require.NoError(t, err)
	require.NoError(t, trainer.Invoke(func(svc *classifier.Service) error {
		_, _, err := svc.TrainCorpus(context.Background(), trainingCorpus)
		return err
	}))

	flags := ParseFlagSet(flag.NewFlagSet("spam-detector", flag.ContinueOnError), []string{"-model-dir", modelDir, "win money"})
	assert.True(t, flags.IsSet("model-dir"))
	assert.False(t, flags.IsSet("threshold"))

	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(svc *classifier.Service, f ports.EmailFilter, cfg *config.Config) error {
		assert.Equal(t, "cli", cfg.GetString("server.filter_type"))
		assert.Equal(t, modelDir, cfg.GetModel().Dir)

		if _, err := svc.LoadModel(context.Background()); err != nil {
			return err
		}
		result, err := f.ProcessEmail(context.Background(), &core.Email{Body: "win money"})
		if err != nil {
			return err
		}
		assert.True(t, result.IsSpam)
		return nil
	})
	require.NoError(t, err)
}

func TestBuildCLIContainerWithoutModel(t *testing.T) {
	flags := ParseFlagSet(flag.NewFlagSet("spam-detector", flag.ContinueOnError), []string{"-model-dir", t.TempDir()})
	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(svc *classifier.Service) error {
		_, err := svc.LoadModel(context.Background())
		return err
	})
	assert.ErrorIs(t, err, core.ErrMissingArtifact)
}
