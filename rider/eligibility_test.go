package rider_test

import (
	"testing"

	"github.com/warp/rider-engine/rider"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func attrs(kv ...string) rider.AttributeMap {
	m := make(rider.AttributeMap)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

func merged(base, update rider.AttributeMap) rider.AttributeMap {
	out := base.Clone()
	for k, v := range update {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// onJobCarPass is the happy-path car rider.
func onJobCarPass() rider.AttributeMap {
	return attrs(
		rider.KeyDeliveryType, "Car",
		rider.KeyAuditStatus, "Audit Pass",
		rider.KeyJobStatus, "On Job",
		rider.KeyTrainingStatus, "Not Eligible",
		rider.KeyBoxInstallation, "Not Eligible",
		rider.KeyEquipmentStatus, "Not Eligible",
	)
}

// =============================================================================
// PIPELINE RULE TESTS
// =============================================================================

func TestComputeUpdates_CarAuditPassOnJob_TrainingEligible(t *testing.T) {
	// GIVEN: A car rider, audit passed, on job
	// WHEN: Computing updates
	// THEN: Training becomes Eligible; installation stays Not Eligible

	update := rider.ComputeUpdates(onJobCarPass())

	if update[rider.KeyTrainingStatus] != "Eligible" {
		t.Errorf("expected training Eligible, got %v", update[rider.KeyTrainingStatus])
	}
	if update[rider.KeyBoxInstallation] != "Not Eligible" {
		t.Errorf("expected installation Not Eligible, got %v", update[rider.KeyBoxInstallation])
	}
	if update[rider.KeyEquipmentStatus] != "Not Eligible" {
		t.Errorf("expected equipment Not Eligible, got %v", update[rider.KeyEquipmentStatus])
	}
}

func TestComputeUpdates_MotorcycleRider_InstallationEligibleTrainingNot(t *testing.T) {
	// GIVEN: A motorcycle rider, audit passed, on job, nothing completed
	// WHEN: Computing updates
	// THEN: Installation Eligible; training Not Eligible (not a car, box
	//       not yet Completed); equipment Not Eligible (training not Completed)

	a := attrs(
		rider.KeyDeliveryType, "Motorcycle",
		rider.KeyAuditStatus, "Audit Pass",
		rider.KeyJobStatus, "On Job",
		rider.KeyBoxInstallation, "Not Eligible",
		rider.KeyTrainingStatus, "Not Eligible",
		rider.KeyEquipmentStatus, "Not Eligible",
	)

	update := rider.ComputeUpdates(a)

	if update[rider.KeyBoxInstallation] != "Eligible" {
		t.Errorf("expected installation Eligible, got %v", update[rider.KeyBoxInstallation])
	}
	if update[rider.KeyTrainingStatus] != "Not Eligible" {
		t.Errorf("expected training Not Eligible, got %v", update[rider.KeyTrainingStatus])
	}
	if update[rider.KeyEquipmentStatus] != "Not Eligible" {
		t.Errorf("expected equipment Not Eligible, got %v", update[rider.KeyEquipmentStatus])
	}
}

func TestComputeUpdates_InstallationCompleted_UnlocksTraining(t *testing.T) {
	// GIVEN: A car rider whose box installation is already Completed
	// WHEN: Computing updates
	// THEN: Training is Eligible via the cross-pipeline unlock, and the
	//       sticky installation key is absent from the output

	a := attrs(
		rider.KeyDeliveryType, "Car",
		rider.KeyAuditStatus, "Audit Pass",
		rider.KeyJobStatus, "On Job",
		rider.KeyBoxInstallation, "Completed",
		rider.KeyTrainingStatus, "Not Eligible",
	)

	update := rider.ComputeUpdates(a)

	if update[rider.KeyTrainingStatus] != "Eligible" {
		t.Errorf("expected training Eligible, got %v", update[rider.KeyTrainingStatus])
	}
	if _, ok := update[rider.KeyBoxInstallation]; ok {
		t.Errorf("sticky installation pipeline must be absent, got %v", update[rider.KeyBoxInstallation])
	}
}

func TestComputeUpdates_EquipmentGatedOnTrainingCompletion(t *testing.T) {
	// GIVEN: Training Completed
	// WHEN: Computing updates
	// THEN: Equipment Eligible
	a := attrs(rider.KeyTrainingStatus, "Completed", rider.KeyEquipmentStatus, "Not Eligible")
	update := rider.ComputeUpdates(a)
	if update[rider.KeyEquipmentStatus] != "Eligible" {
		t.Errorf("expected equipment Eligible, got %v", update[rider.KeyEquipmentStatus])
	}

	// GIVEN: Training merely Eligible
	// THEN: Equipment stays Not Eligible
	a = attrs(rider.KeyTrainingStatus, "Eligible", rider.KeyEquipmentStatus, "Not Eligible")
	update = rider.ComputeUpdates(a)
	if update[rider.KeyEquipmentStatus] != "Not Eligible" {
		t.Errorf("expected equipment Not Eligible, got %v", update[rider.KeyEquipmentStatus])
	}
}

// =============================================================================
// STICKINESS
// =============================================================================

func TestComputeUpdates_StickyStates_NeverOverwritten(t *testing.T) {
	// GIVEN: Each pipeline in each sticky state for an on-job rider
	// WHEN: Computing updates
	// THEN: The sticky pipeline's key never appears in the output

	for _, statusKey := range []string{
		rider.KeyTrainingStatus, rider.KeyBoxInstallation, rider.KeyEquipmentStatus,
	} {
		for _, sticky := range []string{"Completed", "Scheduled"} {
			a := onJobCarPass()
			a[statusKey] = sticky

			update := rider.ComputeUpdates(a)

			if v, ok := update[statusKey]; ok {
				t.Errorf("%s=%s: sticky key present in output (=%v)", statusKey, sticky, v)
			}
		}
	}
}

// =============================================================================
// RESIGNATION CASCADE
// =============================================================================

func TestComputeUpdates_Resignation_ClearsScheduledTraining(t *testing.T) {
	// GIVEN: A resigned rider with training Scheduled and a booked session
	// WHEN: Computing updates
	// THEN: Training forced to Not Eligible, scheduling fields nulled

	a := attrs(
		rider.KeyJobStatus, "Resign",
		rider.KeyTrainingStatus, "Scheduled",
		rider.KeyTrainingDate, "2026-09-01",
		rider.KeyTrainingTime, "09:00",
		rider.KeyTrainingLocation, "Hub 4",
	)

	update := rider.ComputeUpdates(a)

	if update[rider.KeyTrainingStatus] != "Not Eligible" {
		t.Errorf("expected training Not Eligible, got %v", update[rider.KeyTrainingStatus])
	}
	for _, k := range []string{rider.KeyTrainingDate, rider.KeyTrainingTime, rider.KeyTrainingEndTime, rider.KeyTrainingLocation} {
		v, ok := update[k]
		if !ok || v != nil {
			t.Errorf("expected %s nulled, got %v (present=%v)", k, v, ok)
		}
	}
}

func TestComputeUpdates_ResignedAlias_TreatedAsResigned(t *testing.T) {
	// GIVEN: Legacy "Resigned" job status with training Eligible
	// WHEN: Computing updates
	// THEN: Cascade still fires

	a := attrs(rider.KeyJobStatus, "Resigned", rider.KeyTrainingStatus, "Eligible")
	update := rider.ComputeUpdates(a)
	if update[rider.KeyTrainingStatus] != "Not Eligible" {
		t.Errorf("expected training Not Eligible, got %v", update[rider.KeyTrainingStatus])
	}
}

func TestComputeUpdates_Resignation_CompletedEquipmentFlagsReturn(t *testing.T) {
	// GIVEN: A resigned rider with equipment Completed and box Completed
	// WHEN: Computing updates
	// THEN: Statuses untouched; return flags raised with Pending status

	a := attrs(
		rider.KeyJobStatus, "Resign",
		rider.KeyEquipmentStatus, "Completed",
		rider.KeyBoxInstallation, "Completed",
		rider.KeyTrainingStatus, "Completed",
	)

	update := rider.ComputeUpdates(a)

	if _, ok := update[rider.KeyEquipmentStatus]; ok {
		t.Error("completed equipment status must not be overwritten")
	}
	if update[rider.KeyEquipmentReturnRequired] != true {
		t.Errorf("expected equipment_return_required=true, got %v", update[rider.KeyEquipmentReturnRequired])
	}
	if update[rider.KeyEquipmentReturnStatus] != "Pending" {
		t.Errorf("expected equipment_return_status=Pending, got %v", update[rider.KeyEquipmentReturnStatus])
	}
	if update[rider.KeyInstallationReturnRequired] != true {
		t.Errorf("expected installation_return_required=true, got %v", update[rider.KeyInstallationReturnRequired])
	}
	if update[rider.KeyInstallationReturnStatus] != "Pending" {
		t.Errorf("expected installation_return_status=Pending, got %v", update[rider.KeyInstallationReturnStatus])
	}
}

func TestComputeUpdates_Resignation_ExistingReturnStatusPreserved(t *testing.T) {
	// GIVEN: Equipment return flow already underway ("Collected")
	// WHEN: Recomputing after resignation
	// THEN: The existing return status is never overwritten

	a := attrs(
		rider.KeyJobStatus, "Resign",
		rider.KeyEquipmentStatus, "Completed",
		rider.KeyEquipmentReturnStatus, "Collected",
	)

	update := rider.ComputeUpdates(a)

	if _, ok := update[rider.KeyEquipmentReturnStatus]; ok {
		t.Errorf("existing return status overwritten with %v", update[rider.KeyEquipmentReturnStatus])
	}
	if update[rider.KeyEquipmentReturnRequired] != true {
		t.Error("return_required should still be set")
	}
}

func TestComputeUpdates_Resignation_EmptyPipelineCleared(t *testing.T) {
	// GIVEN: A resigned rider whose equipment status was never set
	// WHEN: Computing updates
	// THEN: The empty pipeline is forced to Not Eligible

	a := attrs(rider.KeyJobStatus, "Resign")
	update := rider.ComputeUpdates(a)
	if update[rider.KeyEquipmentStatus] != "Not Eligible" {
		t.Errorf("expected equipment Not Eligible, got %v", update[rider.KeyEquipmentStatus])
	}
}

// =============================================================================
// IDEMPOTENCE
// =============================================================================

func TestComputeUpdates_Idempotent_FixedPointAfterOneApplication(t *testing.T) {
	// GIVEN: A spread of rider documents
	// WHEN: Applying the engine output and recomputing
	// THEN: The diff against the merged document is empty (fixed point)

	cases := []rider.AttributeMap{
		onJobCarPass(),
		attrs(rider.KeyJobStatus, "Resign", rider.KeyTrainingStatus, "Scheduled",
			rider.KeyTrainingDate, "2026-09-01"),
		attrs(rider.KeyJobStatus, "Resigned", rider.KeyEquipmentStatus, "Completed"),
		attrs(rider.KeyDeliveryType, "Motorcycle", rider.KeyAuditStatus, "Audit Pass",
			rider.KeyJobStatus, "On Job"),
		attrs(rider.KeyTrainingStatus, "Completed", rider.KeyEquipmentStatus, "Scheduled"),
		attrs(),
	}

	for i, a := range cases {
		once := merged(a, rider.ComputeUpdates(a))
		again := rider.Diff(once, rider.ComputeUpdates(once))
		if len(again) != 0 {
			t.Errorf("case %d: not a fixed point, second pass still changes %v", i, again)
		}
	}
}

// =============================================================================
// END-TO-END SCENARIO
// =============================================================================

func TestComputeUpdates_MotorcycleScenario_FullOutput(t *testing.T) {
	// GIVEN: Motorcycle, Audit Pass, On Job, all pipelines Not Eligible
	// WHEN: Computing updates
	// THEN: Exactly {installation: Eligible, training: Not Eligible,
	//       equipment: Not Eligible}

	a := attrs(
		rider.KeyDeliveryType, "Motorcycle",
		rider.KeyAuditStatus, "Audit Pass",
		rider.KeyJobStatus, "On Job",
		rider.KeyBoxInstallation, "Not Eligible",
		rider.KeyTrainingStatus, "Not Eligible",
		rider.KeyEquipmentStatus, "Not Eligible",
	)

	update := rider.ComputeUpdates(a)

	want := rider.AttributeMap{
		rider.KeyBoxInstallation: "Eligible",
		rider.KeyTrainingStatus:  "Not Eligible",
		rider.KeyEquipmentStatus: "Not Eligible",
	}
	if len(update) != len(want) {
		t.Fatalf("expected %d keys, got %d: %v", len(want), len(update), update)
	}
	for k, v := range want {
		if update[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, update[k])
		}
	}
}

// =============================================================================
// DIFF
// =============================================================================

func TestDiff_EmptyValuesEquivalent(t *testing.T) {
	// GIVEN: A document without scheduling fields and an update nulling them
	// WHEN: Diffing
	// THEN: Clearing an absent field is not a change

	current := attrs(rider.KeyTrainingStatus, "Not Eligible")
	update := rider.AttributeMap{
		rider.KeyTrainingStatus: "Not Eligible",
		rider.KeyTrainingDate:   nil,
	}

	changed := rider.Diff(current, update)
	if len(changed) != 0 {
		t.Errorf("expected empty diff, got %v", changed)
	}
}
