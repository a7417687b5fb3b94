package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campusfound/custody-workflow/internal/sla"
)

// SlaWorker runs the read-only SLA sweep on a fixed interval and raises
// operational alerts for overdue and approaching requests. It never mutates
// approval progress.
type SlaWorker struct {
	tracker  *sla.Tracker
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// NewSlaWorker creates a sweep worker with the given interval
func NewSlaWorker(tracker *sla.Tracker, interval time.Duration, logger *zap.Logger) *SlaWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SlaWorker{
		tracker:  tracker,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Name returns the worker name
func (w *SlaWorker) Name() string {
	return "sla-sweep"
}

// Start launches the sweep loop
func (w *SlaWorker) Start(ctx context.Context) error {
	go w.run(ctx)
	return nil
}

// Stop signals the loop to exit
func (w *SlaWorker) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	return nil
}

func (w *SlaWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SlaWorker) sweep(ctx context.Context) {
	report, err := w.tracker.Sweep(ctx, time.Now().UTC())
	if err != nil {
		w.logger.Error("SLA sweep failed", zap.Error(err))
		return
	}

	for _, id := range report.Overdue {
		w.logger.Warn("Request overdue", zap.String("request_id", id))
	}
	if len(report.Overdue) > 0 || len(report.Approaching) > 0 {
		w.logger.Info("SLA sweep finished",
			zap.Int("overdue", len(report.Overdue)),
			zap.Int("approaching", len(report.Approaching)))
	}
}
