package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mikey/spam-classifier/internal/core"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reloader periodically reloads the stored model into a Service so that a
// model trained by another process is picked up without a restart
type Reloader struct {
	service *Service
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	started bool
}

// NewReloader schedules reloads of service according to a cron spec such as
// "@every 5m" or "0 * * * *"
func NewReloader(service *Service, schedule string, logger *zap.Logger) (*Reloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Reloader{
		service: service,
		cron:    cron.New(),
		logger:  logger,
	}

	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return nil, fmt.Errorf("invalid reload schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Reload loads the stored model and swaps it in when its ID differs from the
// current one. It reports whether a swap happened.
func (r *Reloader) Reload(ctx context.Context) (bool, error) {
	m, err := r.service.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if m.ID() == r.service.ModelID() {
		return false, nil
	}
	r.service.Swap(m)
	return true, nil
}

func (r *Reloader) tick() {
	swapped, err := r.Reload(context.Background())
	if errors.Is(err, core.ErrMissingArtifact) {
		r.logger.Debug("No stored model to reload yet")
		return
	}
	if err != nil {
		r.logger.Error("Failed to reload model", zap.Error(err))
		return
	}
	if swapped {
		r.logger.Info("Reloaded model", zap.String("model_id", r.service.ModelID()))
	}
}

// Start begins the schedule
func (r *Reloader) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		r.cron.Start()
		r.started = true
	}
}

// Stop halts the schedule and waits for a running reload to finish
func (r *Reloader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		<-r.cron.Stop().Done()
		r.started = false
	}
}

// Run starts the schedule and blocks until ctx is done
func (r *Reloader) Run(ctx context.Context) error {
	r.Start()
	<-ctx.Done()
	r.Stop()
	return nil
}
