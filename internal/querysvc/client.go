// Package querysvc is the HTTP client of the remote query service that
// executes grid queries.
package querysvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/listgrid/internal/grid"
)

const maxResponseBytes = 16 << 20

// errorPaths are tried in order to extract a message from a failed response.
var errorPaths = []string{"body.message", "message", "error.message", "error", "errorMessage"}

// Client implements grid.QueryService over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	group   singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New builds a Client posting to <baseURL>/execute.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type executePayload struct {
	Query         string             `json:"query"`
	ScopeRecordID string             `json:"scopeRecordId"`
	SearchTerm    string             `json:"searchTerm"`
	SortField     string             `json:"sortField"`
	SortDirection grid.SortDirection `json:"sortDirection"`
	PageSize      int                `json:"pageSize"`
	PageNumber    int                `json:"pageNumber"`
	FiltersJSON   string             `json:"filtersJson"`
}

// ExecuteQuery sends the request. Identical requests in flight at the same
// time share one round trip. The shared round trip is detached from any one
// caller's cancellation and bounded by the HTTP client timeout; each caller
// still stops waiting when its own ctx is done.
func (c *Client) ExecuteQuery(ctx context.Context, req grid.QueryRequest) (grid.QueryResponse, error) {
	filters, err := req.FiltersJSON()
	if err != nil {
		return grid.QueryResponse{}, err
	}
	body, err := json.Marshal(executePayload{
		Query:         req.Query,
		ScopeRecordID: req.ScopeRecordID,
		SearchTerm:    req.SearchTerm,
		SortField:     req.SortField,
		SortDirection: req.SortDirection,
		PageSize:      req.PageSize,
		PageNumber:    req.PageNumber,
		FiltersJSON:   filters,
	})
	if err != nil {
		return grid.QueryResponse{}, fmt.Errorf("querysvc: encode request: %w", err)
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(string(body), func() (any, error) {
		return c.post(detached, body)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return grid.QueryResponse{}, ctx.Err()
	case res = <-ch:
	}
	if res.Shared {
		c.logger.Debug("query request collapsed", slog.Int("page", req.PageNumber))
	}
	if res.Err != nil {
		return grid.QueryResponse{}, res.Err
	}
	resp := res.Val.(grid.QueryResponse)
	// callers sharing a result must not share its slices
	resp.Records = append([]grid.Record(nil), resp.Records...)
	return resp, nil
}

func (c *Client) post(ctx context.Context, body []byte) (grid.QueryResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return grid.QueryResponse{}, fmt.Errorf("querysvc: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	res, err := c.http.Do(httpReq)
	if err != nil {
		return grid.QueryResponse{}, fmt.Errorf("querysvc: execute: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return grid.QueryResponse{}, fmt.Errorf("querysvc: read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return grid.QueryResponse{}, &grid.ServiceError{
			StatusCode: res.StatusCode,
			Message:    errorMessage(raw),
			Body:       truncate(string(raw), 512),
		}
	}

	var out grid.QueryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return grid.QueryResponse{}, fmt.Errorf("querysvc: decode response: %w", err)
	}
	return out, nil
}

func errorMessage(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return ""
	}
	for _, path := range errorPaths {
		if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
