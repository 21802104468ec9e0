/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Rider creation and retrieval
- Single-field updates through the workflow Updater
- Bulk recompute trigger and status polling
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rider-engine/rider"
	"github.com/warp/rider-engine/rider/store"
	"github.com/warp/rider-engine/workflow"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	updater := workflow.NewUpdater(mem, nil)
	orchestrator := workflow.NewOrchestrator(mem, nil, nil, workflow.OrchestratorConfig{
		PageSize:    100,
		BatchSize:   20,
		Concurrency: 2,
		WindowDelay: time.Millisecond,
	})
	h := NewHandler(mem, updater, orchestrator, nil)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, mem
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateRider_DefaultsPipelinesNotEligible(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/riders", CreateRiderRequest{
		RiderID:    "r-1",
		Attributes: rider.AttributeMap{rider.KeyDeliveryType: "Car"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	dto := decodeBody[RiderDTO](t, resp)
	assert.Equal(t, "r-1", dto.RiderID)
	assert.Equal(t, "Not Eligible", dto.Attributes.String(rider.KeyTrainingStatus))
	assert.Equal(t, "Not Eligible", dto.Attributes.String(rider.KeyBoxInstallation))
	assert.Equal(t, "Not Eligible", dto.Attributes.String(rider.KeyEquipmentStatus))
}

func TestGetRider_Missing404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/riders/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateField_ReportsChangedPipelines(t *testing.T) {
	srv, mem := newTestServer(t)
	require.NoError(t, mem.Insert(context.Background(), rider.Record{
		RiderID: "r-1",
		Attributes: rider.AttributeMap{
			rider.KeyDeliveryType:    "Car",
			rider.KeyAuditStatus:     "Audit Reject",
			rider.KeyJobStatus:       "On Job",
			rider.KeyTrainingStatus:  "Not Eligible",
			rider.KeyBoxInstallation: "Not Eligible",
			rider.KeyEquipmentStatus: "Not Eligible",
		},
	}))

	resp := postJSON(t, srv.URL+"/api/riders/r-1/fields", UpdateFieldRequest{
		Field:     rider.KeyAuditStatus,
		Value:     "approved",
		UpdatedBy: "ops@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[UpdateFieldResponse](t, resp)
	assert.Contains(t, body.ChangedPipelines, rider.PipelineTraining)
	assert.NotEmpty(t, body.Messages)

	rec, err := mem.GetByKey(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "Audit Pass", rec.Attributes.String(rider.KeyAuditStatus))
	assert.Equal(t, "Eligible", rec.Attributes.String(rider.KeyTrainingStatus))
}

func TestUpdateField_MissingRider404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/riders/ghost/fields", UpdateFieldRequest{
		Field: rider.KeyJobStatus,
		Value: "Resign",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerRecompute_RunsInBackground(t *testing.T) {
	srv, mem := newTestServer(t)
	for _, id := range []string{"r-1", "r-2", "r-3"} {
		require.NoError(t, mem.Insert(context.Background(), rider.Record{
			RiderID: id,
			Attributes: rider.AttributeMap{
				rider.KeyDeliveryType:   "Car",
				rider.KeyAuditStatus:    "Audit Pass",
				rider.KeyJobStatus:      "On Job",
				rider.KeyTrainingStatus: "Not Eligible",
			},
		}))
	}

	resp := postJSON(t, srv.URL+"/api/admin/recompute", struct{}{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/api/admin/recompute/status")
		if err != nil {
			return false
		}
		status := decodeBody[RecomputeStatusDTO](t, resp)
		return !status.Running && status.Last != nil && status.Last.Updated == 3
	}, 5*time.Second, 20*time.Millisecond)
}
