package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/brunobiangulo/collabnet/centrality"
	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/ranking"
	"github.com/brunobiangulo/collabnet/store"
)

type handler struct {
	store *store.Store
}

func newHandler(s *store.Store) *handler {
	return &handler{store: s}
}

// runID resolves the {id} path value; "latest" selects the newest run.
func (h *handler) runID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if id == "latest" {
		return h.store.LatestRun(r.Context())
	}
	return id, nil
}

// GET /runs
func (h *handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		slog.Error("list runs error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// GET /runs/{id}/manifest
func (h *handler) handleManifest(w http.ResponseWriter, r *http.Request) {
	id, err := h.runID(r)
	if err != nil {
		h.fail(w, "manifest", err)
		return
	}
	snaps, err := h.store.Snapshots(r.Context(), id)
	if err != nil {
		h.fail(w, "manifest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":    id,
		"snapshots": snaps,
	})
}

// GET /runs/{id}/descriptors
func (h *handler) handleDescriptors(w http.ResponseWriter, r *http.Request) {
	id, err := h.runID(r)
	if err != nil {
		h.fail(w, "descriptors", err)
		return
	}
	descs, err := h.store.Descriptors(r.Context(), id)
	if err != nil {
		h.fail(w, "descriptors", err)
		return
	}
	type row struct {
		centrality.Descriptor
		RhoLabel string `json:"rho_label"`
	}
	out := make([]row, len(descs))
	for i, d := range descs {
		out[i] = row{Descriptor: d, RhoLabel: d.RhoLabel()}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"descriptors": out})
}

// GET /runs/{id}/centralities?year=&kind=
func (h *handler) handleCentralities(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}
	id, err := h.runID(r)
	if err != nil {
		h.fail(w, "centralities", err)
		return
	}
	rows, err := h.store.Centralities(r.Context(), id, key)
	if err != nil {
		h.fail(w, "centralities", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":          key,
		"centralities": rows,
	})
}

// GET /runs/{id}/similar?year=&kind=&node=&k=
func (h *handler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}
	node := r.URL.Query().Get("node")
	if node == "" {
		writeError(w, http.StatusBadRequest, "node is required")
		return
	}
	k := 10
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "k must be between 1 and 100")
			return
		}
		k = n
	}
	id, err := h.runID(r)
	if err != nil {
		h.fail(w, "similar", err)
		return
	}
	nbs, err := h.store.SimilarNodes(r.Context(), id, key, network.PersonID(node), k)
	if err != nil {
		h.fail(w, "similar", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":       key,
		"node":      node,
		"neighbors": nbs,
	})
}

// GET /runs/{id}/rankings
func (h *handler) handleRankings(w http.ResponseWriter, r *http.Request) {
	id, err := h.runID(r)
	if err != nil {
		h.fail(w, "rankings", err)
		return
	}
	tables, err := h.store.Rankings(r.Context(), id)
	if err != nil {
		h.fail(w, "rankings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rankings": tables})
}

// correlationJSON replaces NaN, which encoding/json rejects, with null.
type correlationJSON struct {
	Year   int      `json:"year"`
	Source string   `json:"source"`
	Target string   `json:"var"`
	Rho    *float64 `json:"spearman"`
	P      *float64 `json:"p"`
	N      int      `json:"n"`
	Stars  string   `json:"stars,omitempty"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// GET /runs/{id}/correlations
func (h *handler) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	id, err := h.runID(r)
	if err != nil {
		h.fail(w, "correlations", err)
		return
	}
	pts, err := h.store.Correlations(r.Context(), id)
	if err != nil {
		h.fail(w, "correlations", err)
		return
	}
	out := make([]correlationJSON, len(pts))
	for i, pt := range pts {
		out[i] = correlationJSON{
			Year: pt.Year, Source: string(pt.Source), Target: string(pt.Target),
			Rho: finite(pt.Rho), P: finite(pt.P), N: pt.N, Stars: pt.Stars,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"measures":     ranking.Measures,
		"correlations": out,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DB().PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// fail maps store errors onto HTTP statuses.
func (h *handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case errors.Is(err, store.ErrSnapshotNotFound):
		writeError(w, http.StatusNotFound, "snapshot not found")
	case errors.Is(err, store.ErrNodeNotFound):
		writeError(w, http.StatusNotFound, "node has no centrality profile")
	default:
		writeError(w, http.StatusInternalServerError, op+" failed")
		slog.Error(op+" error", "error", err)
	}
}

func parseKey(w http.ResponseWriter, r *http.Request) (network.Key, bool) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be an integer")
		return network.Key{}, false
	}
	kind, err := network.ParseKind(q.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "kind must be auth or com")
		return network.Key{}, false
	}
	return network.Key{Year: year, Kind: kind}, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
