package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/spam-classifier/internal/classifier"
	"github.com/mikey/spam-classifier/internal/config"
	"github.com/mikey/spam-classifier/internal/di"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "", "Path to config file")
	corpusPath = flag.String("corpus", "", "Labeled corpus (CSV with Category and Message columns), overrides training.corpus_path")
	reportPath = flag.String("report", "", "Write the training report as YAML to this path, overrides training.report_path")
)

func main() {
	flag.Parse()

	container, err := di.BuildContainer(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(train); err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}
}

func train(cfg *config.Config, logger *zap.Logger, service *classifier.Service) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trainingCfg := cfg.GetTraining()
	path := trainingCfg.CorpusPath
	if *corpusPath != "" {
		path = *corpusPath
	}
	out := trainingCfg.ReportPath
	if *reportPath != "" {
		out = *reportPath
	}

	logger.Info("Training model", zap.String("corpus", path))
	report, err := service.TrainModel(ctx, path)
	if err != nil {
		return err
	}

	fmt.Print(report.Summary())

	if out != "" {
		if err := report.WriteYAML(out); err != nil {
			return fmt.Errorf("model saved but report not written: %w", err)
		}
		logger.Info("Wrote training report", zap.String("path", out))
	}
	return nil
}
