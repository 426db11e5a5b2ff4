package ports

import (
	"context"

	"github.com/mikey/spam-classifier/internal/core"
)

// EmailFilter is a transport that feeds messages to the spam filter service:
// the Postfix content filter for the daemon, the console for the detector.
type EmailFilter interface {
	// ProcessEmail scores one message. An error means no verdict exists, for
	// example because no model has been trained yet.
	ProcessEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error)

	// Start begins accepting messages without blocking
	Start() error

	// Stop releases the transport
	Stop() error
}
