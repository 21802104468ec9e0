/*
Package rider provides the core eligibility state-derivation engine.

PURPOSE:
  This package contains the domain types and pure algorithms for deriving
  a rider's pipeline eligibility — training, box installation, equipment
  distribution — from a semi-structured attribute document. It performs
  no I/O: persistence lives behind the Store interface (store.go), and
  the application layers live in the workflow package.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record: A rider document (business key + open attribute map)
  - AttributeMap: Schemaless string-keyed attributes; only a fixed subset
    of keys is meaningful to the engine, everything else passes through
  - PipelineStatus / DeliveryType / AuditStatus / JobStatus: closed enums
    replacing the ad-hoc status strings of the source data
  - Pipeline: descriptor binding a pipeline to its status key, its
    scheduling field keys, and its return-flag keys

DESIGN PRINCIPLES:
  1. Purity: the engine (eligibility.go) and normalizer (normalize.go)
     are total functions with no side effects
  2. Type Safety: closed enums make invalid pipeline states unrepresentable
     in new code, while AttributeMap keeps legacy documents readable
  3. Sticky states: Completed and Scheduled are manual states the engine
     must never overwrite

SEE ALSO:
  - eligibility.go: ComputeUpdates, the heart of the system
  - normalize.go: free-text field canonicalization
  - store.go: persistence interface
*/
package rider

import "time"

// =============================================================================
// RECORD - A rider document
// =============================================================================

// AttributeMap is the open, schemaless attribute document of a rider.
// Values are JSON scalars: string, bool, float64, or nil.
type AttributeMap map[string]any

// Record is a rider row as held by the external document store.
type Record struct {
	ID         string       // storage-assigned opaque id
	RiderID    string       // business key, unique, immutable once assigned
	Attributes AttributeMap
	UpdatedAt  time.Time
}

// Clone returns a deep-enough copy for scalar-valued attribute maps.
func (a AttributeMap) Clone() AttributeMap {
	out := make(AttributeMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// String returns the attribute as a trimmed string ("" for absent, nil,
// or non-string values). Engine comparisons all go through this view.
func (a AttributeMap) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return trimmed(s)
}

// =============================================================================
// STATUS ENUMS - Closed value sets for the recognized attribute keys
// =============================================================================

// PipelineStatus is the state of one eligibility pipeline.
type PipelineStatus string

const (
	StatusEligible    PipelineStatus = "Eligible"
	StatusNotEligible PipelineStatus = "Not Eligible"
	StatusScheduled   PipelineStatus = "Scheduled"
	StatusCompleted   PipelineStatus = "Completed"
)

// IsSticky reports whether the status is manual and must never be
// overwritten by the engine.
func (s PipelineStatus) IsSticky() bool {
	return s == StatusScheduled || s == StatusCompleted
}

// DeliveryType is the rider's vehicle class.
type DeliveryType string

const (
	DeliveryCar        DeliveryType = "Car"
	DeliveryMotorcycle DeliveryType = "Motorcycle"
)

// AuditStatus is the background/quality audit outcome.
type AuditStatus string

const (
	AuditPass   AuditStatus = "Audit Pass"
	AuditReject AuditStatus = "Audit Reject"
)

// JobStatus is the rider's employment status. "Resigned" survives in
// legacy documents as an alias of "Resign"; the engine accepts both.
type JobStatus string

const (
	JobOnJob         JobStatus = "On Job"
	JobResign        JobStatus = "Resign"
	JobResignedAlias JobStatus = "Resigned"
)

// ReturnStatus tracks reclamation of issued equipment / installed boxes
// after a resignation.
type ReturnStatus string

const (
	ReturnPending ReturnStatus = "Pending"
)

// =============================================================================
// ATTRIBUTE KEYS - The fixed subset of keys the engine understands
// =============================================================================

const (
	KeyDeliveryType = "delivery_type"
	KeyAuditStatus  = "audit_status"
	KeyJobStatus    = "job_status"

	KeyTrainingStatus  = "training_status"
	KeyBoxInstallation = "box_installation"
	KeyEquipmentStatus = "equipment_status"

	// Training scheduling fields
	KeyTrainingDate     = "training_date"
	KeyTrainingTime     = "training_time"
	KeyTrainingEndTime  = "training_end_time"
	KeyTrainingLocation = "training_location"

	// Installation scheduling fields
	KeyInstallationDate       = "installation_date"
	KeyInstallationTime       = "installation_time"
	KeyInstallationEndTime    = "installation_end_time"
	KeyInstallationLocation   = "installation_location"
	KeyInstallationVendorID   = "installation_vendor_id"
	KeyInstallationVendorName = "installation_vendor_name"
	KeyInstallationVendorMail = "installation_vendor_email"
	KeyInstallationInProgress = "installation_in_progress"

	// Equipment scheduling fields
	KeyEquipmentDate     = "equipment_date"
	KeyEquipmentTime     = "equipment_time"
	KeyEquipmentEndTime  = "equipment_end_time"
	KeyEquipmentLocation = "equipment_location"

	// Return-of-assets flags, set by the resignation cascade
	KeyEquipmentReturnRequired    = "equipment_return_required"
	KeyEquipmentReturnStatus      = "equipment_return_status"
	KeyInstallationReturnRequired = "installation_return_required"
	KeyInstallationReturnStatus   = "installation_return_status"

	// Audit trail fields written by the updater
	KeyLastUpdatedBy = "last_updated_by"
	KeyLastUpdatedAt = "last_updated_at"
)

// EligibilityKeys are the attribute keys whose edits require consulting
// the engine.
var EligibilityKeys = []string{
	KeyDeliveryType,
	KeyAuditStatus,
	KeyJobStatus,
	KeyBoxInstallation,
	KeyTrainingStatus,
	KeyEquipmentStatus,
}

// IsEligibilityKey reports whether editing key affects eligibility.
func IsEligibilityKey(key string) bool {
	for _, k := range EligibilityKeys {
		if k == key {
			return true
		}
	}
	return false
}

// =============================================================================
// PIPELINES - Descriptors binding each pipeline to its field keys
// =============================================================================

// PipelineName identifies one of the three eligibility pipelines.
type PipelineName string

const (
	PipelineTraining     PipelineName = "training"
	PipelineInstallation PipelineName = "installation"
	PipelineEquipment    PipelineName = "equipment"
)

// Pipeline describes the attribute keys owned by one pipeline.
type Pipeline struct {
	Name           PipelineName
	StatusKey      string
	SchedulingKeys []string // nulled by the resignation cascade
	ReturnRequired string   // "" if the pipeline has no return flow
	ReturnStatus   string
}

// Pipelines lists the three pipelines in cascade evaluation order.
var Pipelines = []Pipeline{
	{
		Name:      PipelineTraining,
		StatusKey: KeyTrainingStatus,
		SchedulingKeys: []string{
			KeyTrainingDate, KeyTrainingTime, KeyTrainingEndTime, KeyTrainingLocation,
		},
	},
	{
		Name:      PipelineInstallation,
		StatusKey: KeyBoxInstallation,
		SchedulingKeys: []string{
			KeyInstallationDate, KeyInstallationTime, KeyInstallationEndTime,
			KeyInstallationLocation, KeyInstallationVendorID,
			KeyInstallationVendorName, KeyInstallationVendorMail,
			KeyInstallationInProgress,
		},
		ReturnRequired: KeyInstallationReturnRequired,
		ReturnStatus:   KeyInstallationReturnStatus,
	},
	{
		Name:      PipelineEquipment,
		StatusKey: KeyEquipmentStatus,
		SchedulingKeys: []string{
			KeyEquipmentDate, KeyEquipmentTime, KeyEquipmentEndTime, KeyEquipmentLocation,
		},
		ReturnRequired: KeyEquipmentReturnRequired,
		ReturnStatus:   KeyEquipmentReturnStatus,
	},
}

// PipelineByStatusKey returns the pipeline owning a status key, or nil.
func PipelineByStatusKey(key string) *Pipeline {
	for i := range Pipelines {
		if Pipelines[i].StatusKey == key {
			return &Pipelines[i]
		}
	}
	return nil
}
