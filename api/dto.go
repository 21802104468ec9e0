/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the internal domain
  model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/rider-engine/rider"
	"github.com/warp/rider-engine/workflow"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RiderDTO represents a rider document in API responses.
type RiderDTO struct {
	ID         string             `json:"id"`
	RiderID    string             `json:"rider_id"`
	Attributes rider.AttributeMap `json:"attributes"`
	UpdatedAt  string             `json:"updated_at"`
}

// RiderListDTO is a fetched page plus the authoritative total.
type RiderListDTO struct {
	Riders []RiderDTO `json:"riders"`
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
}

// CreateRiderRequest is the intake-form stand-in for record creation.
type CreateRiderRequest struct {
	RiderID    string             `json:"rider_id"`
	Attributes rider.AttributeMap `json:"attributes"`
}

// UpdateFieldRequest is a single-field edit.
type UpdateFieldRequest struct {
	Field     string             `json:"field"`
	Value     any                `json:"value"`
	Extra     rider.AttributeMap `json:"extra,omitempty"`
	UpdatedBy string             `json:"updated_by"`
}

// UpdateFieldResponse reports what the edit changed downstream.
type UpdateFieldResponse struct {
	RiderID          string               `json:"rider_id"`
	ChangedPipelines []rider.PipelineName `json:"changed_pipelines"`
	Messages         []string             `json:"messages"`
}

// RecomputeStatusDTO exposes the orchestrator's state to the portal.
type RecomputeStatusDTO struct {
	Running bool                `json:"running"`
	Last    *workflow.RunReport `json:"last,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
