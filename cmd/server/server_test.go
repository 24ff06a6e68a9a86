//go:build cgo

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/collabnet"
)

const testEvents = `[
  {"year": 2000, "journal": "AER", "authors": [{"label": "A", "scopus_id": 1}, {"label": "B", "scopus_id": 2}],
   "com": [{"label": "C", "scopus_id": 3}, {"label": "D", "scopus_id": 4}]},
  {"year": 2001, "journal": "JPE", "authors": [{"label": "C", "scopus_id": 3}, {"label": "D", "scopus_id": 4}],
   "com": [{"label": "A", "scopus_id": 1}, {"label": "E", "scopus_id": 5}]}
]`

func newTestServer(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.json"), []byte(testEvents), 0644))

	cfg := collabnet.DefaultConfig()
	cfg.DBPath = filepath.Join(dir, "collabnet.db")
	cfg.Events = filepath.Join(dir, "events.json")
	cfg.Window = 2
	cfg.MinYear = 1999
	cfg.MaxYear = 2001

	p, err := collabnet.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	var h http.Handler = routes(p.Store())
	h = authMiddleware("secret", h)
	return h, res.RunID
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestHealthSkipsAuth(t *testing.T) {
	h, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRunEndpoints(t *testing.T) {
	h, runID := newTestServer(t)

	rec, body := get(t, h, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["runs"], 1)

	rec, body = get(t, h, "/runs/latest/manifest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runID, body["run_id"])
	assert.NotEmpty(t, body["snapshots"])

	rec, body = get(t, h, "/runs/"+runID+"/descriptors")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["descriptors"])

	rec, body = get(t, h, "/runs/"+runID+"/centralities?year=2001&kind=auth")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["centralities"])

	// Sparse panels leave most correlations undefined; they must encode as null.
	rec, body = get(t, h, "/runs/"+runID+"/correlations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["correlations"])

	rec, _ = get(t, h, "/runs/"+runID+"/rankings")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEndpointErrors(t *testing.T) {
	h, runID := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown run", "/runs/nope/manifest", http.StatusNotFound},
		{"bad year", "/runs/" + runID + "/centralities?year=x&kind=auth", http.StatusBadRequest},
		{"bad kind", "/runs/" + runID + "/centralities?year=2001&kind=both", http.StatusBadRequest},
		{"missing snapshot", "/runs/" + runID + "/centralities?year=1990&kind=auth", http.StatusNotFound},
		{"missing node", "/runs/" + runID + "/similar?year=2001&kind=auth", http.StatusBadRequest},
		{"bad k", "/runs/" + runID + "/similar?year=2001&kind=auth&node=1&k=0", http.StatusBadRequest},
		{"unknown node", "/runs/" + runID + "/similar?year=2001&kind=auth&node=99", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, h, tt.path)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCORS(t *testing.T) {
	h := corsMiddleware("https://a.example, https://b.example", http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
	req.Header.Set("Origin", "https://b.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://b.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
