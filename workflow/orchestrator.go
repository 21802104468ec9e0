/*
orchestrator.go - Full-dataset eligibility recompute

PURPOSE:
  Re-derives eligibility for every rider in the store: count, fetch all
  records through sequential paged reads, partition into batches, run
  batches in bounded concurrency windows, persist only records whose
  derived state actually changed, and report progress throughout.

PHASES:
  Idle -> Counting -> Fetching -> Batching -> Processing -> Reporting -> Idle

  There is no resumable checkpoint. An interrupted run is simply re-run
  from Counting; writes already committed survive, and because the
  engine is idempotent the re-run converges on the same fixed point.

THROTTLING:
  - One outstanding page request at a time (stable updated_at-desc
    traversal, no read burst against the hosted store)
  - At most Concurrency batches of writes in flight per window
  - A fixed WindowDelay sleep between windows caps sustained write rate

FAILURE SEMANTICS:
  - count/fetch failure: AbortError, zero writes attempted, sink.Error
  - count/fetch disagreement: CountMismatchError logged as a warning,
    run continues on the fetched set
  - per-record write failure: logged, tallied as failed, never stops
    the batch or the run
  - cancellation: checked between windows; in-flight batches finish,
    no new window starts

SEE ALSO:
  - rider/eligibility.go: per-record computation
  - progress.go: sink implementations
*/
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/rider-engine/rider"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// OrchestratorConfig bounds the bulk run's load on the external store.
type OrchestratorConfig struct {
	PageSize    int           // records per fetch page
	BatchSize   int           // records per processing batch
	Concurrency int           // batches in flight per window
	WindowDelay time.Duration // pause between concurrency windows
}

// DefaultOrchestratorConfig matches the hosted store's comfortable rate.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		PageSize:    1000,
		BatchSize:   200,
		Concurrency: 10,
		WindowDelay: 300 * time.Millisecond,
	}
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	d := DefaultOrchestratorConfig()
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.WindowDelay < 0 {
		c.WindowDelay = d.WindowDelay
	}
	return c
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs full-dataset recomputes. One run at a time.
type Orchestrator struct {
	store  rider.Store
	sink   ProgressSink
	logger *zap.Logger
	cfg    OrchestratorConfig
	now    func() time.Time

	mu      sync.Mutex
	running bool
	last    *RunReport
}

func NewOrchestrator(store rider.Store, sink ProgressSink, logger *zap.Logger, cfg OrchestratorConfig) *Orchestrator {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:  store,
		sink:   sink,
		logger: logger,
		cfg:    cfg.withDefaults(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RunReport is the outcome of one bulk recompute.
type RunReport struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`   // authoritative store count
	Fetched   int           `json:"fetched"` // records actually retrieved
	Updated   int           `json:"updated"` // records whose document changed
	Failed    int           `json:"failed"`  // per-record write failures
	Mismatch  string        `json:"mismatch,omitempty"`
	Cancelled bool          `json:"cancelled,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Status returns whether a run is in flight and the latest report.
func (o *Orchestrator) Status() (running bool, last *RunReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last != nil {
		cp := *o.last
		last = &cp
	}
	return o.running, last
}

// RecomputeAll runs the engine over every record and persists the diffs.
// Returns ErrRecomputeRunning if a run is already in flight.
func (o *Orchestrator) RecomputeAll(ctx context.Context) (*RunReport, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, rider.ErrRecomputeRunning
	}
	o.running = true
	o.mu.Unlock()

	report := &RunReport{RunID: uuid.NewString(), StartedAt: o.now()}
	defer func() {
		report.Elapsed = o.now().Sub(report.StartedAt)
		o.mu.Lock()
		o.running = false
		cp := *report
		o.last = &cp
		o.mu.Unlock()
	}()

	o.sink.Show("Recomputing eligibility", "Counting riders")

	// Counting.
	total, err := o.store.Count(ctx)
	if err != nil {
		o.sink.Error("Recompute failed", "Could not count riders")
		return report, &rider.AbortError{Phase: "count", Err: err}
	}
	report.Total = total

	// Fetching: strictly sequential pages, updated_at descending.
	records, err := o.fetchAll(ctx, total)
	if err != nil {
		o.sink.Error("Recompute failed", "Could not fetch riders")
		return report, &rider.AbortError{Phase: "fetch", Err: err}
	}
	report.Fetched = len(records)

	if len(records) != total {
		mismatch := &rider.CountMismatchError{Expected: total, Fetched: len(records)}
		report.Mismatch = mismatch.Error()
		o.logger.Warn("proceeding despite count mismatch",
			zap.Int("expected", total),
			zap.Int("fetched", len(records)),
		)
	}

	// Batching.
	batches := partition(records, o.cfg.BatchSize)
	o.logger.Info("bulk recompute starting",
		zap.String("run_id", report.RunID),
		zap.Int("records", len(records)),
		zap.Int("batches", len(batches)),
		zap.Int("concurrency", o.cfg.Concurrency),
	)

	// Processing: windows of at most Concurrency batches.
	done := 0
	for start := 0; start < len(batches); start += o.cfg.Concurrency {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		end := start + o.cfg.Concurrency
		if end > len(batches) {
			end = len(batches)
		}
		window := batches[start:end]
		results := make([]batchResult, len(window))

		var wg sync.WaitGroup
		for i, batch := range window {
			wg.Add(1)
			go func(i int, batch []rider.Record) {
				defer wg.Done()
				results[i] = o.processBatch(ctx, batch)
			}(i, batch)
		}
		wg.Wait()

		for _, res := range results {
			report.Updated += res.updated
			report.Failed += res.failed
		}
		done = end

		percent := float64(done) / float64(len(batches)) * 100
		o.sink.Update(percent, "processing", "Recomputing eligibility",
			fmt.Sprintf("%d/%d batches, %d updated", done, len(batches), report.Updated))

		// Throttle before the next window.
		if done < len(batches) {
			o.pause(ctx)
		}
	}

	// Reporting.
	if report.Cancelled {
		o.sink.Error("Recompute cancelled",
			fmt.Sprintf("%d/%d batches processed, %d updated", done, len(batches), report.Updated))
	} else {
		o.sink.Complete("Recompute complete",
			fmt.Sprintf("%d riders processed, %d updated, %d failed", report.Fetched, report.Updated, report.Failed))
	}
	o.logger.Info("bulk recompute finished",
		zap.String("run_id", report.RunID),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
		zap.Bool("cancelled", report.Cancelled),
	)
	return report, nil
}

// fetchAll accumulates every record through sequential paged reads. One
// page in flight at a time; a short or empty page ends the traversal.
func (o *Orchestrator) fetchAll(ctx context.Context, total int) ([]rider.Record, error) {
	var all []rider.Record
	for offset := 0; ; offset += o.cfg.PageSize {
		page, err := o.store.FetchPage(ctx, offset, o.cfg.PageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if total > 0 {
			percent := float64(len(all)) / float64(total) * 100
			if percent > 100 {
				percent = 100
			}
			o.sink.Update(percent, "fetching", "Recomputing eligibility",
				fmt.Sprintf("Fetched %d/%d riders", len(all), total))
		}
		if len(page) < o.cfg.PageSize {
			return all, nil
		}
	}
}

type batchResult struct {
	updated int
	failed  int
}

// processBatch runs the engine over one batch sequentially. A record's
// write failure is tallied and logged, never raised.
func (o *Orchestrator) processBatch(ctx context.Context, batch []rider.Record) batchResult {
	var res batchResult
	for _, rec := range batch {
		changed := rider.Diff(rec.Attributes, rider.ComputeUpdates(rec.Attributes))
		if len(changed) == 0 {
			continue
		}
		if err := o.store.UpdateByKey(ctx, rec.RiderID, changed, o.now()); err != nil {
			res.failed++
			o.logger.Error("record recompute write failed",
				zap.String("rider_id", rec.RiderID),
				zap.Error(err),
			)
			continue
		}
		res.updated++
	}
	return res
}

func (o *Orchestrator) pause(ctx context.Context) {
	if o.cfg.WindowDelay <= 0 {
		return
	}
	t := time.NewTimer(o.cfg.WindowDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func partition(records []rider.Record, size int) [][]rider.Record {
	var batches [][]rider.Record
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}
