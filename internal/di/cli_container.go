package di

import (
	"flag"
	"os"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/spam-classifier/internal/config"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/logging"
)

// CLIFlags contains all command line flags for the detector
type CLIFlags struct {
	// Model flags
	ModelDir      string
	SpamThreshold float64

	// Input flags
	InputFile  string
	Mail       bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string

	// set records the flags given explicitly so they override the config file
	set map[string]bool
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return ParseFlagSet(flag.CommandLine, os.Args[1:])
}

// ParseFlagSet registers the detector flags on fs and parses args
func ParseFlagSet(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{set: make(map[string]bool)}

	// Model flags
	fs.StringVar(&flags.ModelDir, "model-dir", "./spam_nlp", "Directory holding vocabulary.json and weights.json")
	fs.Float64Var(&flags.SpamThreshold, "threshold", 0.0, "Decision threshold on the classifier score")

	// Input flags
	fs.StringVar(&flags.InputFile, "file", "", "Input file (use arguments or stdin if not specified)")
	fs.BoolVar(&flags.Mail, "mail", false, "Treat the input as an RFC 5322 email message")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose output and logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	// fs.Parse exits or returns an error according to the set's ErrorHandling
	_ = fs.Parse(args)
	fs.Visit(func(f *flag.Flag) {
		flags.set[f.Name] = true
	})
	return flags
}

// IsSet reports whether the named flag was given on the command line
func (f *CLIFlags) IsSet(name string) bool {
	return f.set[name]
}

// BuildCLIContainer creates the container for the one-shot detector. It has
// no cache and no whitelist so every input is scored by the model.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.Load(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			applyFlags(cfg, flags)
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	// Register spam filter service with no cache
	if err := container.Provide(func(
		c core.Classifier,
		logger *zap.Logger,
		cfg *config.Config,
	) *core.SpamFilterService {
		return core.NewSpamFilterService(
			c,
			nil, // No cache for CLI
			logger,
			false,            // Cache disabled
			time.Duration(0), // No TTL
			cfg.GetSpam().Threshold,
			nil, // No whitelist
			nil, // Input is scored as given
			0,
		)
	}); err != nil {
		return nil, err
	}

	if err := provideEmailFilter(container); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("model.store", "file")
	cfg.Set("model.dir", flags.ModelDir)
	cfg.Set("spam.threshold", flags.SpamThreshold)
	applyFlags(cfg, flags)
	return cfg
}

// applyFlags overlays the CLI specific settings and any explicit flags
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	cfg.Set("server.filter_type", "cli")
	cfg.Set("cli.verbose", flags.Verbose)
	cfg.Set("model.reload_schedule", "")

	if flags.IsSet("model-dir") {
		cfg.Set("model.store", "file")
		cfg.Set("model.dir", flags.ModelDir)
	}
	if flags.IsSet("threshold") {
		cfg.Set("spam.threshold", flags.SpamThreshold)
	}
}
