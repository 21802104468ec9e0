/*
handlers.go - HTTP handler implementations

PURPOSE:
  The staff-portal surface over the eligibility core: rider document
  reads, single-field edits (through the workflow Updater), and the
  bulk recompute trigger/status pair (through the Orchestrator).

ASYNC RECOMPUTE:
  TriggerRecompute starts the run on a background goroutine and returns
  202 immediately; the portal polls /api/admin/recompute/status. Only
  one run is in flight at a time - a second trigger gets 409.

SEE ALSO:
  - server.go: routes
  - workflow/: the layers these handlers delegate to
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/rider-engine/rider"
	"github.com/warp/rider-engine/workflow"
)

// Handler bundles the dependencies the HTTP surface needs.
type Handler struct {
	store        rider.Store
	updater      *workflow.Updater
	orchestrator *workflow.Orchestrator
	logger       *zap.Logger

	// bulkCtx parents background recompute runs so server shutdown can
	// cancel them between batch windows.
	bulkCtx context.Context
}

// NewHandler creates the API handler.
func NewHandler(store rider.Store, updater *workflow.Updater, orchestrator *workflow.Orchestrator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:        store,
		updater:      updater,
		orchestrator: orchestrator,
		logger:       logger,
		bulkCtx:      context.Background(),
	}
}

// SetBulkContext installs the lifecycle context for background runs.
func (h *Handler) SetBulkContext(ctx context.Context) {
	h.bulkCtx = ctx
}

// =============================================================================
// RIDER ENDPOINTS
// =============================================================================

func (h *Handler) ListRiders(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	if limit > 1000 {
		limit = 1000
	}

	total, err := h.store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count riders", err)
		return
	}
	page, err := h.store.FetchPage(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list riders", err)
		return
	}

	dtos := make([]RiderDTO, 0, len(page))
	for _, rec := range page {
		dtos = append(dtos, toRiderDTO(rec))
	}
	writeJSON(w, http.StatusOK, RiderListDTO{Riders: dtos, Total: total, Offset: offset, Limit: limit})
}

func (h *Handler) GetRider(w http.ResponseWriter, r *http.Request) {
	riderID := chi.URLParam(r, "riderID")
	rec, err := h.store.GetByKey(r.Context(), riderID)
	if rider.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Rider not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get rider", err)
		return
	}
	writeJSON(w, http.StatusOK, toRiderDTO(*rec))
}

func (h *Handler) CreateRider(w http.ResponseWriter, r *http.Request) {
	var req CreateRiderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RiderID == "" {
		writeError(w, http.StatusBadRequest, "rider_id is required", nil)
		return
	}

	attrs := req.Attributes
	if attrs == nil {
		attrs = make(rider.AttributeMap)
	}
	// New riders start every pipeline at Not Eligible.
	for _, p := range rider.Pipelines {
		if attrs.String(p.StatusKey) == "" {
			attrs[p.StatusKey] = string(rider.StatusNotEligible)
		}
	}

	rec := rider.Record{RiderID: req.RiderID, Attributes: attrs}
	if err := h.store.Insert(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create rider", err)
		return
	}

	created, err := h.store.GetByKey(r.Context(), req.RiderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load created rider", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRiderDTO(*created))
}

func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	riderID := chi.URLParam(r, "riderID")

	var req UpdateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Field == "" {
		writeError(w, http.StatusBadRequest, "field is required", nil)
		return
	}

	res, err := h.updater.UpdateField(r.Context(), riderID, req.Field, req.Value, req.Extra, req.UpdatedBy)
	if rider.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Rider not found", nil)
		return
	}
	if errors.Is(err, rider.ErrPersistence) {
		writeError(w, http.StatusBadGateway, "Store rejected the update", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update field", err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateFieldResponse{
		RiderID:          res.RiderID,
		ChangedPipelines: res.ChangedPipelines,
		Messages:         res.Messages,
	})
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

func (h *Handler) TriggerRecompute(w http.ResponseWriter, r *http.Request) {
	if running, _ := h.orchestrator.Status(); running {
		writeError(w, http.StatusConflict, "A recompute is already running", nil)
		return
	}

	go func() {
		if _, err := h.orchestrator.RecomputeAll(h.bulkCtx); err != nil &&
			!errors.Is(err, rider.ErrRecomputeRunning) {
			h.logger.Error("background recompute failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) RecomputeStatus(w http.ResponseWriter, r *http.Request) {
	running, last := h.orchestrator.Status()
	writeJSON(w, http.StatusOK, RecomputeStatusDTO{Running: running, Last: last})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func toRiderDTO(rec rider.Record) RiderDTO {
	return RiderDTO{
		ID:         rec.ID,
		RiderID:    rec.RiderID,
		Attributes: rec.Attributes,
		UpdatedAt:  rec.UpdatedAt.Format(time.RFC3339),
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
