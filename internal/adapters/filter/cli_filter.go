package filter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/utils"
	"go.uber.org/zap"
)

// previewSize caps the body preview printed in verbose mode
const previewSize = 500

// CliFilter prints a human readable verdict for a single message
type CliFilter struct {
	service *core.SpamFilterService
	logger  *zap.Logger
	verbose bool
	out     io.Writer
	text    *utils.TextProcessor
}

// NewCliFilter creates a new CLI filter writing to out
func NewCliFilter(service *core.SpamFilterService, logger *zap.Logger, verbose bool, out io.Writer) (*CliFilter, error) {
	if out == nil {
		return nil, fmt.Errorf("cli filter needs an output writer")
	}
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
		out:     out,
		text:    utils.NewTextProcessor(logger),
	}, nil
}

// ProcessEmail analyzes an email and prints the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	if f.verbose {
		fmt.Fprintf(f.out, "=== Message ===\n")
		if email.From != "" {
			fmt.Fprintf(f.out, "From: %s\n", email.From)
		}
		if len(email.To) > 0 {
			fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
		}
		if email.Subject != "" {
			fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
		}
		fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

		preview := email.Body
		if len(preview) > previewSize {
			preview = f.text.TruncateText(preview, previewSize) + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n\n", preview)
	}

	startTime := time.Now()
	result, err := f.service.AnalyzeEmail(ctx, email)
	if err != nil {
		f.logger.Debug("Failed to analyze email", zap.Error(err))
		return nil, err
	}
	duration := time.Since(startTime)

	verdict := core.NotSpam
	if result.IsSpam {
		verdict = core.Spam
	}
	fmt.Fprintf(f.out, "%s\n", strings.ReplaceAll(verdict.String(), "_", " "))

	if f.verbose {
		fmt.Fprintf(f.out, "\n=== Analysis ===\n")
		fmt.Fprintf(f.out, "Score: %.4f\n", result.Score)
		fmt.Fprintf(f.out, "Explanation: %s\n", result.Explanation)
		fmt.Fprintf(f.out, "Model: %s\n", result.ModelUsed)
		fmt.Fprintf(f.out, "Processing time: %v\n", duration)
	}

	return result, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
