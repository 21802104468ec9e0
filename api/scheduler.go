/*
scheduler.go - Automated eligibility recompute scheduler

PURPOSE:
  Periodically runs a full-dataset eligibility recompute so derived
  statuses cannot drift from bulk data imports that bypass the portal.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Skips a tick when a manual recompute is already in flight
  - Because the engine is idempotent, an unnecessary tick is a no-op
    (zero records updated)

CONFIGURATION:
  - Interval: How often to recompute (default: 24 hours)
  - Enabled:  Whether the scheduler is active (default: false)

USAGE:
  scheduler := NewRecomputeScheduler(orchestrator, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - workflow/orchestrator.go: RecomputeAll
  - handlers.go: TriggerRecompute (manual runs)
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/rider-engine/rider"
	"github.com/warp/rider-engine/workflow"
)

// RecomputeScheduler handles automated periodic recomputes.
type RecomputeScheduler struct {
	Orchestrator *workflow.Orchestrator
	Interval     time.Duration
	Enabled      bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRecomputeScheduler creates a new scheduler (disabled by default).
func NewRecomputeScheduler(orchestrator *workflow.Orchestrator, logger *zap.Logger) *RecomputeScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecomputeScheduler{
		Orchestrator: orchestrator,
		Interval:     24 * time.Hour,
		logger:       logger,
		stop:         make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RecomputeScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.logger.Info("recompute scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.wg.Add(1)
	go rs.run()

	rs.logger.Info("recompute scheduler started", zap.Duration("interval", rs.Interval))
}

// Stop stops the scheduler.
func (rs *RecomputeScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.logger.Info("recompute scheduler stopped")
	}
}

func (rs *RecomputeScheduler) run() {
	defer rs.wg.Done()

	for {
		select {
		case <-rs.ticker.C:
			rs.recompute()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RecomputeScheduler) recompute() {
	report, err := rs.Orchestrator.RecomputeAll(context.Background())
	if errors.Is(err, rider.ErrRecomputeRunning) {
		rs.logger.Info("skipping scheduled recompute, one already running")
		return
	}
	if err != nil {
		rs.logger.Error("scheduled recompute failed", zap.Error(err))
		return
	}
	rs.logger.Info("scheduled recompute finished",
		zap.String("run_id", report.RunID),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
	)
}
