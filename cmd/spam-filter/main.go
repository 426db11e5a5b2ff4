package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/spam-classifier/internal/artifact"
	"github.com/mikey/spam-classifier/internal/classifier"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/di"
	"github.com/mikey/spam-classifier/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	service *classifier.Service,
	reloader *classifier.Reloader,
	store artifact.Store,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := service.LoadModel(ctx)
	switch {
	case errors.Is(err, core.ErrMissingArtifact):
		logger.Warn("No trained model found, messages are deferred until one is trained with spam-trainer")
	case err != nil:
		return fmt.Errorf("failed to load model: %w", err)
	default:
		logger.Info("Loaded model",
			zap.String("model_id", m.ID()),
			zap.Time("created_at", m.CreatedAt()),
			zap.Int("vocabulary_size", m.Vocabulary().Size()))
	}

	// Start the filter
	if err := emailFilter.Start(); err != nil {
		return fmt.Errorf("failed to start filter: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if reloader != nil {
		g.Go(func() error {
			return reloader.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		return emailFilter.Stop()
	})

	err = g.Wait()
	if err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	// Stop the cache if needed
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	// Close the model store if it holds a connection
	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close model store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return err
}
