package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rider-engine/rider"
	"github.com/warp/rider-engine/rider/store"
	"github.com/warp/rider-engine/workflow"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fastConfig keeps bulk-run tests snappy while still exercising
// multiple pages, batches, and windows.
func fastConfig() workflow.OrchestratorConfig {
	return workflow.OrchestratorConfig{
		PageSize:    50,
		BatchSize:   20,
		Concurrency: 3,
		WindowDelay: time.Millisecond,
	}
}

// seedFleet inserts n stale riders: all are car/pass/on-job but still
// marked Not Eligible for training, so every record needs one update.
func seedFleet(t *testing.T, mem *store.Memory, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("rider-%03d", i)
		seedRider(t, mem, id, carRiderAttrs())
	}
}

// countingStore tallies writes so tests can assert "zero writes attempted".
type countingStore struct {
	*store.Memory
	writes int
}

func (c *countingStore) UpdateByKey(ctx context.Context, riderID string, attrs rider.AttributeMap, at time.Time) error {
	c.writes++
	return c.Memory.UpdateByKey(ctx, riderID, attrs, at)
}

// brokenCountStore fails the counting phase.
type brokenCountStore struct {
	*countingStore
}

func (b *brokenCountStore) Count(ctx context.Context) (int, error) {
	return 0, fmt.Errorf("store unreachable")
}

// inflatedCountStore reports more records than exist.
type inflatedCountStore struct {
	*store.Memory
	extra int
}

func (s *inflatedCountStore) Count(ctx context.Context) (int, error) {
	n, err := s.Memory.Count(ctx)
	return n + s.extra, err
}

// =============================================================================
// ORCHESTRATOR TESTS
// =============================================================================

func TestRecomputeAll_UpdatesStaleRecords(t *testing.T) {
	mem := store.NewMemory()
	seedFleet(t, mem, 125) // 3 pages, 7 batches, 3 windows

	o := workflow.NewOrchestrator(mem, nil, nil, fastConfig())
	report, err := o.RecomputeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 125, report.Total)
	assert.Equal(t, 125, report.Fetched)
	assert.Equal(t, 125, report.Updated)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, report.Mismatch)

	rec, err := mem.GetByKey(context.Background(), "rider-057")
	require.NoError(t, err)
	assert.Equal(t, "Eligible", rec.Attributes.String(rider.KeyTrainingStatus))
}

func TestRecomputeAll_SecondRunConverges(t *testing.T) {
	// Running twice with no edits between runs must find nothing left
	// to write: the engine reaches its fixed point in one pass.
	mem := store.NewMemory()
	seedFleet(t, mem, 60)

	o := workflow.NewOrchestrator(mem, nil, nil, fastConfig())

	first, err := o.RecomputeAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 60, first.Updated)

	second, err := o.RecomputeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 60, second.Fetched)
}

func TestRecomputeAll_PerRecordFailureIsolated(t *testing.T) {
	// One record's write failure must not stop its batch or the run.
	mem := store.NewMemory()
	seedFleet(t, mem, 200)
	fs := &failingStore{Memory: mem, failID: "rider-057"}

	o := workflow.NewOrchestrator(fs, nil, nil, fastConfig())
	report, err := o.RecomputeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 199, report.Updated)
	assert.Equal(t, 1, report.Failed)
}

func TestRecomputeAll_CountFailure_AbortsWithZeroWrites(t *testing.T) {
	mem := store.NewMemory()
	seedFleet(t, mem, 10)
	cs := &countingStore{Memory: mem}
	bs := &brokenCountStore{countingStore: cs}

	o := workflow.NewOrchestrator(bs, nil, nil, fastConfig())
	_, err := o.RecomputeAll(context.Background())

	require.Error(t, err)
	var abort *rider.AbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, "count", abort.Phase)
	assert.Equal(t, 0, cs.writes)
}

func TestRecomputeAll_CountMismatch_WarnsAndProceeds(t *testing.T) {
	mem := store.NewMemory()
	seedFleet(t, mem, 30)
	is := &inflatedCountStore{Memory: mem, extra: 5}

	o := workflow.NewOrchestrator(is, nil, nil, fastConfig())
	report, err := o.RecomputeAll(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.Mismatch)
	assert.Equal(t, 35, report.Total)
	assert.Equal(t, 30, report.Fetched)
	assert.Equal(t, 30, report.Updated)
}

func TestRecomputeAll_CancelledBeforeProcessing_NoNewBatches(t *testing.T) {
	mem := store.NewMemory()
	seedFleet(t, mem, 40)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := workflow.NewOrchestrator(mem, nil, nil, fastConfig())
	report, err := o.RecomputeAll(ctx)
	require.NoError(t, err)

	assert.True(t, report.Cancelled)
	assert.Equal(t, 0, report.Updated)
}

func TestRecomputeAll_ChannelSinkSeesLifecycle(t *testing.T) {
	mem := store.NewMemory()
	seedFleet(t, mem, 25)
	sink := workflow.NewChannelSink(64)

	o := workflow.NewOrchestrator(mem, sink, nil, fastConfig())
	_, err := o.RecomputeAll(context.Background())
	require.NoError(t, err)

	kinds := map[string]bool{}
	for {
		select {
		case ev := <-sink.C:
			kinds[ev.Kind] = true
			continue
		default:
		}
		break
	}
	assert.True(t, kinds["show"])
	assert.True(t, kinds["update"])
	assert.True(t, kinds["complete"])
}

func TestRecomputeAll_StatusExposesLastReport(t *testing.T) {
	mem := store.NewMemory()
	seedFleet(t, mem, 5)

	o := workflow.NewOrchestrator(mem, nil, nil, fastConfig())

	running, last := o.Status()
	assert.False(t, running)
	assert.Nil(t, last)

	_, err := o.RecomputeAll(context.Background())
	require.NoError(t, err)

	running, last = o.Status()
	assert.False(t, running)
	require.NotNil(t, last)
	assert.Equal(t, 5, last.Updated)
	assert.NotEmpty(t, last.RunID)
}
