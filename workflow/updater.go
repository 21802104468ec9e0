/*
updater.go - Single-record field updates

PURPOSE:
  Applies one human-initiated field edit to one rider: merge the edit,
  consult the eligibility engine when the field affects eligibility,
  persist, and report which downstream pipeline statuses changed so the
  caller can message the operator.

MANUAL STICKY VALUES:
  When the edited field IS one of the three pipeline status fields and
  the new value is Completed or Scheduled, the engine's output for that
  same field is discarded (the manual choice wins) while its outputs for
  the OTHER pipelines are kept. That is what lets completing a box
  installation immediately open the training window, without the engine
  clobbering the installation status the operator just set. Equipment
  still only unlocks off a completed training; installation completion
  alone does not forward to it. That asymmetry is inherited business
  policy, not an oversight.

FAILURE MODES:
  - rider missing: ErrRiderNotFound, no write attempted
  - store write fails: PersistenceError, candidate discarded

SEE ALSO:
  - rider/eligibility.go: ComputeUpdates
  - rider/normalize.go: classification fields are normalized on write
*/
package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/rider-engine/rider"
)

// Updater applies single-field edits against an injected store.
type Updater struct {
	store  rider.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewUpdater(store rider.Store, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// UpdateResult reports what a field edit did.
type UpdateResult struct {
	RiderID          string
	Applied          rider.AttributeMap   // the patch actually persisted
	ChangedPipelines []rider.PipelineName // pipelines whose status changed value
	Messages         []string             // operator-facing summaries
}

// UpdateField merges {field: value} (plus any extra fields) into the
// rider's document, re-derives eligibility when relevant, and persists
// the result. updatedBy is recorded in the document's audit fields.
func (u *Updater) UpdateField(ctx context.Context, riderID, field string, value any, extra rider.AttributeMap, updatedBy string) (*UpdateResult, error) {
	rec, err := u.store.GetByKey(ctx, riderID)
	if err != nil {
		return nil, err
	}
	before := rec.Attributes

	// Classification fields accept free text; canonicalize before merging.
	if s, ok := value.(string); ok {
		switch field {
		case rider.KeyDeliveryType, rider.KeyAuditStatus, rider.KeyJobStatus:
			value = rider.Normalize(field, s)
		}
	}

	now := u.now()
	patch := rider.AttributeMap{
		field:                  value,
		rider.KeyLastUpdatedBy: updatedBy,
		rider.KeyLastUpdatedAt: now.Format(time.RFC3339),
	}
	for k, v := range extra {
		patch[k] = v
	}

	if rider.IsEligibilityKey(field) {
		candidate := applyPatch(before, patch)
		engineOut := rider.ComputeUpdates(candidate)

		// A manual Completed/Scheduled on a pipeline field wins over the
		// engine for that field; the other pipelines still cascade.
		if p := rider.PipelineByStatusKey(field); p != nil {
			if s, ok := value.(string); ok && rider.PipelineStatus(s).IsSticky() {
				delete(engineOut, field)
			}
		}
		for k, v := range engineOut {
			patch[k] = v
		}
	}

	if err := u.store.UpdateByKey(ctx, riderID, patch, now); err != nil {
		u.logger.Error("field update failed",
			zap.String("rider_id", riderID),
			zap.String("field", field),
			zap.Error(err),
		)
		return nil, &rider.PersistenceError{RiderID: riderID, Err: err}
	}

	after := applyPatch(before, patch)
	result := &UpdateResult{RiderID: riderID, Applied: patch}
	for _, p := range rider.Pipelines {
		was := before.String(p.StatusKey)
		is := after.String(p.StatusKey)
		if was != is {
			result.ChangedPipelines = append(result.ChangedPipelines, p.Name)
			result.Messages = append(result.Messages,
				fmt.Sprintf("%s status changed to %s", p.Name, is))
		}
	}

	u.logger.Info("field updated",
		zap.String("rider_id", riderID),
		zap.String("field", field),
		zap.Int("patch_keys", len(patch)),
		zap.Int("pipelines_changed", len(result.ChangedPipelines)),
	)
	return result, nil
}

// applyPatch merges patch over base into a fresh map; nil values clear.
func applyPatch(base, patch rider.AttributeMap) rider.AttributeMap {
	out := base.Clone()
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
