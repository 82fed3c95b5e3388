package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfleet/dispatch/pkg/dispatch"
	"github.com/taskfleet/dispatch/pkg/registry"
)

const checkoutAgent = `---
id: checkout-agent
tier: domain
module: ecommerce
triggers: [checkout, payment]
tools: [read, write]
max_tokens: 50
---
Checkout knowledge.
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "checkout.md"), []byte(checkoutAgent), 0o644))

	store, err := registry.Open(context.Background(), tmpDir)
	require.NoError(t, err)

	s, err := New(&Config{Host: "localhost", Port: 8080}, store, dispatch.New(store))
	require.NoError(t, err)
	return s, tmpDir
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, (&Config{Host: "localhost", Port: 8080}).Validate())
	assert.Error(t, (&Config{Host: "", Port: 8080}).Validate())
	assert.Error(t, (&Config{Host: "localhost", Port: 0}).Validate())
	assert.Error(t, (&Config{Host: "localhost", Port: 70000}).Validate())
}

func TestHandleActivate(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"text":   "design the checkout flow",
		"budget": 1000,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/activate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var result dispatch.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Activated, 1)
	assert.Equal(t, "checkout-agent", result.Activated[0].ID)
	assert.Equal(t, []string{"read", "write"}, result.Tools)
}

func TestHandleActivateBadBody(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/activate", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReload(t *testing.T) {
	s, tmpDir := newTestServer(t)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "search.md"), []byte(`---
id: search-agent
tier: core
triggers: [search]
---
Search knowledge.
`), 0o644))

	req := httptest.NewRequest(http.MethodPost, "/api/reload", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["count"])
}

func TestHandleReloadMalformedKeepsPreviousRegistry(t *testing.T) {
	s, tmpDir := newTestServer(t)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "broken.md"), []byte(`---
tier: domain
triggers: [x]
---
No id.
`), 0o644))

	req := httptest.NewRequest(http.MethodPost, "/api/reload", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, s.store.Current().Len(), "previous registry still active")
}

func TestHandleListAgents(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Agents []agentSummary `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Agents, 1)
	assert.Equal(t, "checkout-agent", resp.Agents[0].ID)
	assert.Equal(t, 50, resp.Agents[0].MaxTokens)
}

func TestHandleGetAgent(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/agents/checkout-agent", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var agent agentSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agent))
		assert.Equal(t, "ecommerce", agent.Module)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/agents/ghost", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
