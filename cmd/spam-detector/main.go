package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mikey/spam-classifier/internal/adapters/filter"
	"github.com/mikey/spam-classifier/internal/classifier"
	"github.com/mikey/spam-classifier/internal/config"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/di"
	"github.com/mikey/spam-classifier/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(
		logger *zap.Logger,
		cfg *config.Config,
		service *classifier.Service,
		emailFilter ports.EmailFilter,
	) error {
		return detect(flags, logger, cfg, service, emailFilter)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func detect(
	flags *di.CLIFlags,
	logger *zap.Logger,
	cfg *config.Config,
	service *classifier.Service,
	emailFilter ports.EmailFilter,
) error {
	defer logger.Sync()
	ctx := context.Background()

	if _, err := service.LoadModel(ctx); err != nil {
		if errors.Is(err, core.ErrMissingArtifact) {
			return fmt.Errorf("no trained model in %s, train one first with spam-trainer: %w", cfg.GetModel().Dir, err)
		}
		return err
	}

	input, err := openInput(flags)
	if err != nil {
		return err
	}
	defer input.Close()

	var email *core.Email
	if flags.Mail {
		email, _, _, err = filter.ParseEmail(input)
		if err != nil {
			return err
		}
	} else {
		text, err := io.ReadAll(input)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		email = &core.Email{Body: string(text)}
	}

	_, err = emailFilter.ProcessEmail(ctx, email)
	return err
}

// openInput returns the text to classify from -file, the remaining
// arguments or stdin, in that order of preference
func openInput(flags *di.CLIFlags) (io.ReadCloser, error) {
	if flags.InputFile != "" {
		f, err := os.Open(flags.InputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		return f, nil
	}
	if args := flag.Args(); len(args) > 0 {
		return io.NopCloser(strings.NewReader(strings.Join(args, " "))), nil
	}
	return io.NopCloser(os.Stdin), nil
}
