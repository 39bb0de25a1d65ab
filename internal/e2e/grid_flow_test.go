package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/listgrid/internal/app"
	"github.com/odyssey-erp/listgrid/internal/catalog"
	"github.com/odyssey-erp/listgrid/internal/grid"
	gridhttp "github.com/odyssey-erp/listgrid/internal/grid/http"
	"github.com/odyssey-erp/listgrid/internal/observability"
	"github.com/odyssey-erp/listgrid/internal/platform/cache"
	"github.com/odyssey-erp/listgrid/internal/querysvc"
	"github.com/odyssey-erp/listgrid/internal/shared"
	"github.com/odyssey-erp/listgrid/internal/users"
)

const definition = `name: accounts
title: Team Accounts
query: SELECT Id, Name, Rating FROM Account
pageSize: 2
search: true
selectableRows: true
allowSort: true
columns:
  - field: Name
  - field: Rating
    displayAsPill: true
    pillColors: "Hot:#ff0000"
    filterValues: "Hot,Cold"
`

// queryBackend pages over a fixed account list and honours the search term.
type queryBackend struct {
	mu       sync.Mutex
	payloads []map[string]any
}

func (b *queryBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"message":"bad payload"}`, http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	b.payloads = append(b.payloads, payload)
	b.mu.Unlock()

	all := []map[string]any{
		{"Id": "a", "Name": "Acme", "Rating": "Hot"},
		{"Id": "b", "Name": "Globex", "Rating": "Cold"},
		{"Id": "c", "Name": "Initech", "Rating": "Hot"},
	}
	term, _ := payload["searchTerm"].(string)
	var matched []map[string]any
	for _, rec := range all {
		if strings.Contains(strings.ToLower(rec["Name"].(string)), strings.ToLower(term)) {
			matched = append(matched, rec)
		}
	}
	page := int(payload["pageNumber"].(float64))
	size := int(payload["pageSize"].(float64))
	start := min((page-1)*size, len(matched))
	end := min(start+size, len(matched))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"records":    matched[start:end],
		"totalCount": len(matched),
		"fieldMetadata": map[string]any{
			"Rating": map[string]any{"label": "Account Rating", "type": "STRING"},
		},
	})
}

func (b *queryBackend) last() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.payloads[len(b.payloads)-1]
}

type userRepo struct{}

func (userRepo) SearchActive(context.Context, string) ([]users.User, error) {
	return []users.User{{ID: "005A", Name: "Jane Doe", Email: "jane@example.com"}}, nil
}

type ownerStore struct {
	mu     sync.Mutex
	ids    []string
	owner  string
	actors []string
}

func (s *ownerStore) ChangeOwner(ctx context.Context, ids []string, owner string) (grid.ReassignResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids, s.owner = ids, owner
	s.actors = append(s.actors, shared.ActorFromContext(ctx))
	return grid.ReassignResult{Success: true, SuccessCount: len(ids)}, nil
}

type gridBody struct {
	ID   string `json:"id"`
	View struct {
		RecordCountLabel string `json:"recordCountLabel"`
		Rows             []struct {
			ID string `json:"id"`
		} `json:"rows"`
		Pagination struct {
			Page       int `json:"page"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
		Selection struct {
			Count int `json:"count"`
		} `json:"selection"`
		Owner struct {
			Open    bool `json:"open"`
			Results []struct {
				ID string `json:"id"`
			} `json:"results"`
		} `json:"owner"`
	} `json:"view"`
	Toasts []grid.Toast `json:"toasts"`
}

type stack struct {
	server  *httptest.Server
	backend *queryBackend
	owners  *ownerStore
	metrics *observability.Metrics
}

func newStack(t *testing.T) *stack {
	t.Helper()
	backend := &queryBackend{}
	qs := httptest.NewServer(backend)
	t.Cleanup(qs.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	def, err := catalog.Parse("accounts.yaml", strings.NewReader(definition))
	require.NoError(t, err)
	defs, err := catalog.New(def)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	directory := users.NewDirectory(userRepo{}, cache.NewVersioned(rdb, "users", time.Minute), logger)
	owners := &ownerStore{}
	registry := gridhttp.NewRegistry(gridhttp.RegistryOptions{
		Logger:  logger,
		OnOpen:  metrics.GridOpened,
		OnClose: metrics.GridClosed,
	})
	handler := gridhttp.NewHandler(logger, defs, registry, gridhttp.Dependencies{
		Query:  querysvc.New(qs.URL, querysvc.WithLogger(logger)),
		Users:  directory,
		Owners: owners,
		Options: grid.Options{
			Debounce: time.Millisecond,
			Observer: metrics,
		},
	})
	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       &app.Config{},
		GridHandler:  handler,
		UsersHandler: users.NewHandler(logger, directory),
		Metrics:      metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &stack{server: srv, backend: backend, owners: owners, metrics: metrics}
}

func (s *stack) call(t *testing.T, method, path, body string) (int, gridBody) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(app.ActorHeader, "005X")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out gridBody
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestGridFlowEndToEnd(t *testing.T) {
	s := newStack(t)

	status, body := s.call(t, http.MethodPost, "/grids", `{"definition":"accounts","scopeRecordId":"001X"}`)
	require.Equal(t, http.StatusCreated, status)
	id := body.ID
	assert.Equal(t, "3 records", body.View.RecordCountLabel)
	assert.Equal(t, 2, body.View.Pagination.TotalPages)
	assert.Equal(t, "001X", s.backend.last()["scopeRecordId"])
	assert.Equal(t, "{}", s.backend.last()["filtersJson"])

	status, body = s.call(t, http.MethodPost, "/grids/"+id+"/page", `{"action":"next"}`)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.View.Rows, 1)
	assert.Equal(t, "c", body.View.Rows[0].ID)

	status, _ = s.call(t, http.MethodPost, "/grids/"+id+"/filters", `{"field":"Rating","value":"Hot","checked":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"Rating":["Hot"]}`, s.backend.last()["filtersJson"].(string))
	assert.Equal(t, float64(1), s.backend.last()["pageNumber"])

	status, _ = s.call(t, http.MethodPost, "/grids/"+id+"/search", `{"term":"glob"}`)
	require.Equal(t, http.StatusAccepted, status)
	require.Eventually(t, func() bool {
		_, b := s.call(t, http.MethodGet, "/grids/"+id, "")
		return b.View.RecordCountLabel == "1 record"
	}, 2*time.Second, 10*time.Millisecond)

	status, body = s.call(t, http.MethodPost, "/grids/"+id+"/selection/page", `{"selected":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.View.Selection.Count)

	status, _ = s.call(t, http.MethodPost, "/grids/"+id+"/owner/open", "")
	require.Equal(t, http.StatusOK, status)
	status, _ = s.call(t, http.MethodPost, "/grids/"+id+"/owner/search", `{"term":"jane"}`)
	require.Equal(t, http.StatusAccepted, status)
	require.Eventually(t, func() bool {
		_, b := s.call(t, http.MethodGet, "/grids/"+id, "")
		return len(b.View.Owner.Results) == 1
	}, 2*time.Second, 10*time.Millisecond)

	status, _ = s.call(t, http.MethodPost, "/grids/"+id+"/owner/choose", `{"userId":"005A"}`)
	require.Equal(t, http.StatusOK, status)
	status, body = s.call(t, http.MethodPost, "/grids/"+id+"/owner/submit", "")
	require.Equal(t, http.StatusOK, status)
	assert.False(t, body.View.Owner.Open)
	assert.Equal(t, 0, body.View.Selection.Count)
	require.NotEmpty(t, body.Toasts)
	assert.Equal(t, "Successfully changed owner for 1 record(s)", body.Toasts[0].Message)
	assert.Equal(t, "005A", s.owners.owner)
	assert.Equal(t, []string{"005X"}, s.owners.actors)

	status, _ = s.call(t, http.MethodDelete, "/grids/"+id, "")
	assert.Equal(t, http.StatusNoContent, status)
}

func TestUsersEndpointAndMetrics(t *testing.T) {
	s := newStack(t)

	resp, err := http.Get(s.server.URL + "/users/search?q=ja")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Users []users.User `json:"users"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Users, 1)

	status, _ := s.call(t, http.MethodPost, "/grids", `{"definition":"accounts"}`)
	require.Equal(t, http.StatusCreated, status)

	metricsResp, err := http.Get(s.server.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	raw, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `listgrid_grid_reloads_total{outcome="loaded"} 1`)
	assert.Contains(t, string(raw), "listgrid_active_grids 1")
}
