/*
eligibility.go - The eligibility state-derivation engine

PURPOSE:
  ComputeUpdates derives the correct training / box-installation /
  equipment pipeline states from a rider's current attribute document.
  It is the single place business rules live; every caller (single-field
  edits, bulk recomputes, the scheduler) funnels through it.

RULES:
  Training:     Eligible <=> (Car AND Audit Pass AND On Job) OR box Completed
  Installation: Eligible <=> Motorcycle AND Audit Pass AND On Job
  Equipment:    Eligible <=> training Completed

  All three rules read the same input snapshot; no rule observes another
  rule's output within the same call. Completed and Scheduled are sticky:
  a sticky pipeline is never recomputed.

RESIGNATION CASCADE:
  A resigned rider ("Resign" or legacy "Resigned") has every pipeline
  still in flight (Scheduled, Eligible, or empty) forced to Not Eligible
  with its scheduling fields nulled. A Completed equipment or installation
  pipeline keeps its status but gains return-required flags so assets can
  be reclaimed. Cascade writes are layered after the pipeline rules and
  win any conflict.

PURITY:
  Total function. No I/O, no logging, no clock. Applying the output and
  recomputing reaches a fixed point after one application (idempotence) -
  the bulk orchestrator depends on this to converge.

SEE ALSO:
  - types.go: enums, keys, pipeline descriptors
  - workflow/updater.go, workflow/orchestrator.go: the only writers
*/
package rider

// ComputeUpdates evaluates the eligibility rules and the resignation
// cascade over a snapshot of attrs and returns the attribute writes that
// bring the document up to date. The result contains a status key for
// every non-sticky pipeline (even when the computed value matches the
// input; callers diff before persisting), nils for cleared scheduling
// fields, and return flags. Sticky pipelines the cascade did not touch
// are absent entirely.
func ComputeUpdates(attrs AttributeMap) AttributeMap {
	in := snapshotOf(attrs)
	update := make(AttributeMap)

	// Pipeline rules, each over the input snapshot only.
	if !in.trainingStatus.IsSticky() {
		update[KeyTrainingStatus] = statusFor((in.isCar && in.auditPass && in.onJob) || in.installCompleted)
	}
	if !in.installStatus.IsSticky() {
		update[KeyBoxInstallation] = statusFor(in.isMotorcycle && in.auditPass && in.onJob)
	}
	if !in.equipmentStatus.IsSticky() {
		update[KeyEquipmentStatus] = statusFor(in.trainingCompleted)
	}

	// Resignation cascade, layered last so its writes win.
	if in.isResigned {
		applyResignation(attrs, update)
	}

	return update
}

// applyResignation forces in-flight pipelines to Not Eligible, nulls
// their scheduling fields, and raises return flags for completed
// equipment / installation.
func applyResignation(attrs, update AttributeMap) {
	for _, p := range Pipelines {
		status := PipelineStatus(attrs.String(p.StatusKey))
		if status == StatusScheduled || status == StatusEligible || status == "" {
			update[p.StatusKey] = string(StatusNotEligible)
			for _, k := range p.SchedulingKeys {
				update[k] = nil
			}
		}
		if status == StatusCompleted && p.ReturnRequired != "" {
			update[p.ReturnRequired] = true
			// Never overwrite a return flow already underway.
			if attrs.String(p.ReturnStatus) == "" {
				update[p.ReturnStatus] = string(ReturnPending)
			}
		}
	}
}

// snapshot is the fixed set of derived booleans the rules read. Built
// once per call so every rule sees the same input state.
type snapshot struct {
	auditPass         bool
	onJob             bool
	isCar             bool
	isMotorcycle      bool
	isResigned        bool
	installCompleted  bool
	trainingCompleted bool
	trainingStatus    PipelineStatus
	installStatus     PipelineStatus
	equipmentStatus   PipelineStatus
}

func snapshotOf(attrs AttributeMap) snapshot {
	job := attrs.String(KeyJobStatus)
	s := snapshot{
		auditPass:       attrs.String(KeyAuditStatus) == string(AuditPass),
		onJob:           job == string(JobOnJob),
		isCar:           attrs.String(KeyDeliveryType) == string(DeliveryCar),
		isMotorcycle:    attrs.String(KeyDeliveryType) == string(DeliveryMotorcycle),
		isResigned:      job == string(JobResign) || job == string(JobResignedAlias),
		trainingStatus:  PipelineStatus(attrs.String(KeyTrainingStatus)),
		installStatus:   PipelineStatus(attrs.String(KeyBoxInstallation)),
		equipmentStatus: PipelineStatus(attrs.String(KeyEquipmentStatus)),
	}
	s.installCompleted = s.installStatus == StatusCompleted
	s.trainingCompleted = s.trainingStatus == StatusCompleted
	return s
}

func statusFor(eligible bool) string {
	if eligible {
		return string(StatusEligible)
	}
	return string(StatusNotEligible)
}

// =============================================================================
// DIFF - Reduce an update to the keys that actually change a document
// =============================================================================

// Diff returns the subset of update whose values differ from current.
// Absent, nil, and "" are one empty value: clearing a field that was
// never set is not a change. Persisting only the diff is what makes
// repeated bulk recomputes converge to zero writes.
func Diff(current, update AttributeMap) AttributeMap {
	changed := make(AttributeMap)
	for k, v := range update {
		if !valuesEqual(current[k], v) {
			changed[k] = v
		}
	}
	return changed
}

func valuesEqual(a, b any) bool {
	if isEmptyValue(a) && isEmptyValue(b) {
		return true
	}
	return a == b
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && trimmed(s) == ""
}
