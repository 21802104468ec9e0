/*
Package rest implements rider.Store over a hosted table-API backend.

PURPOSE:
  The production deployment keeps rider documents in a hosted
  backend-as-a-service table (row storage with JSON columns) reachable
  over HTTP. This client adapts that record API to rider.Store so the
  workflow layer cannot tell it apart from SQLite or memory.

API SHAPE:
  GET    {base}/api/tables/{table}/records?offset=&limit=&sort=-updated_at
  GET    {base}/api/tables/{table}/records?rider_id={id}&limit=1
  POST   {base}/api/tables/{table}/records
  PATCH  {base}/api/tables/{table}/records/{record_id}

  List responses carry {"records": [...], "total": n}; PATCH merges the
  submitted fields into the stored document server-side, with JSON null
  clearing a field. That matches rider.Store's merge contract.

RATE LIMITS:
  The backend throttles aggressive clients. The resty client retries
  transient failures with backoff; sustained write-rate shaping is the
  bulk orchestrator's job (bounded windows plus inter-window delay).

SEE ALSO:
  - rider/store.go: interface contract
  - workflow/orchestrator.go: the throttled bulk caller
*/
package rest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/warp/rider-engine/rider"
)

// Client implements rider.Store against the hosted record API.
type Client struct {
	http   *resty.Client
	table  string
	logger *zap.Logger
}

// New builds a client for one riders table. token may be empty for
// unauthenticated local backends.
func New(baseURL, token, table string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		hc.SetAuthToken(token)
	}
	return &Client{http: hc, table: table, logger: logger}
}

// recordEnvelope is one row as the backend represents it.
type recordEnvelope struct {
	ID        string         `json:"id"`
	RiderID   string         `json:"rider_id"`
	Fields    map[string]any `json:"fields"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type listResponse struct {
	Records []recordEnvelope `json:"records"`
	Total   int              `json:"total"`
}

func (c *Client) recordsPath() string {
	return fmt.Sprintf("/api/tables/%s/records", c.table)
}

// =============================================================================
// rider.Store IMPLEMENTATION
// =============================================================================

func (c *Client) Count(ctx context.Context) (int, error) {
	var list listResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", "1").
		SetResult(&list).
		Get(c.recordsPath())
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("count records: backend returned %s", resp.Status())
	}
	return list.Total, nil
}

func (c *Client) FetchPage(ctx context.Context, offset, limit int) ([]rider.Record, error) {
	var list listResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"offset": strconv.Itoa(offset),
			"limit":  strconv.Itoa(limit),
			"sort":   "-updated_at",
		}).
		SetResult(&list).
		Get(c.recordsPath())
	if err != nil {
		return nil, fmt.Errorf("fetch page at %d: %w", offset, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch page at %d: backend returned %s", offset, resp.Status())
	}

	page := make([]rider.Record, 0, len(list.Records))
	for _, env := range list.Records {
		page = append(page, toRecord(env))
	}
	return page, nil
}

func (c *Client) GetByKey(ctx context.Context, riderID string) (*rider.Record, error) {
	env, err := c.lookup(ctx, riderID)
	if err != nil {
		return nil, err
	}
	rec := toRecord(*env)
	return &rec, nil
}

func (c *Client) UpdateByKey(ctx context.Context, riderID string, attrs rider.AttributeMap, at time.Time) error {
	env, err := c.lookup(ctx, riderID)
	if err != nil {
		return err
	}

	body := map[string]any{
		"fields":     attrs,
		"updated_at": at.UTC().Format(time.RFC3339),
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Patch(c.recordsPath() + "/" + env.ID)
	if err != nil {
		return &rider.PersistenceError{RiderID: riderID, Err: err}
	}
	if resp.IsError() {
		c.logger.Error("record patch rejected",
			zap.String("rider_id", riderID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return &rider.PersistenceError{
			RiderID: riderID,
			Err:     fmt.Errorf("backend returned %s", resp.Status()),
		}
	}
	return nil
}

func (c *Client) Insert(ctx context.Context, rec rider.Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	body := map[string]any{
		"rider_id":   rec.RiderID,
		"fields":     rec.Attributes,
		"updated_at": rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.recordsPath())
	if err != nil {
		return &rider.PersistenceError{RiderID: rec.RiderID, Err: err}
	}
	if resp.IsError() {
		return &rider.PersistenceError{
			RiderID: rec.RiderID,
			Err:     fmt.Errorf("backend returned %s", resp.Status()),
		}
	}
	return nil
}

// lookup resolves a rider id to its backend record envelope.
func (c *Client) lookup(ctx context.Context, riderID string) (*recordEnvelope, error) {
	var list listResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"rider_id": riderID,
			"limit":    "1",
		}).
		SetResult(&list).
		Get(c.recordsPath())
	if err != nil {
		return nil, fmt.Errorf("lookup rider %s: %w", riderID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("lookup rider %s: backend returned %s", riderID, resp.Status())
	}
	if len(list.Records) == 0 {
		return nil, rider.ErrRiderNotFound
	}
	return &list.Records[0], nil
}

func toRecord(env recordEnvelope) rider.Record {
	attrs := make(rider.AttributeMap, len(env.Fields))
	for k, v := range env.Fields {
		attrs[k] = v
	}
	return rider.Record{
		ID:         env.ID,
		RiderID:    env.RiderID,
		Attributes: attrs,
		UpdatedAt:  env.UpdatedAt,
	}
}
