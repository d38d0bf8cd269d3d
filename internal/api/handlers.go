package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fincore/warehouse/internal/metrics"
	"github.com/fincore/warehouse/internal/models"
	"github.com/fincore/warehouse/internal/store"
)

// Ingester runs an ingestion batch against a warehouse backend.
type Ingester interface {
	Run(ctx context.Context, tickers []string, st store.Store) *models.IngestReport
}

// Handler holds dependencies for HTTP handlers. The document store may be
// nil when it was unreachable at startup; document endpoints then answer
// 503 while everything relational keeps working.
type Handler struct {
	sqlite   *store.SQLiteStore
	mongo    *store.MongoStore
	ingester Ingester
}

// NewHandler creates a new Handler
func NewHandler(sqlite *store.SQLiteStore, mongo *store.MongoStore, ingester Ingester) *Handler {
	return &Handler{
		sqlite:   sqlite,
		mongo:    mongo,
		ingester: ingester,
	}
}

// resolveStore maps an untrusted backend name to a warehouse backend.
func (h *Handler) resolveStore(name string) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite":
		return h.sqlite, nil
	case "mongo", "mongodb":
		if h.mongo == nil {
			return nil, store.ErrUnavailable
		}
		return h.mongo, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

// GetRecords handles GET /records?backend=sqlite|mongo
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	st, err := h.resolveStore(r.URL.Query().Get("backend"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	records, err := st.ReadAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.FinancialRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"backend": st.Name(),
		"count":   len(records),
		"records": records,
	})
}

// GetMetrics handles GET /metrics?backend=sqlite|mongo and returns the
// table augmented with derived ratio columns plus the dashboard summary.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	st, err := h.resolveStore(r.URL.Query().Get("backend"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	records, err := st.ReadAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"backend": st.Name(),
		"summary": metrics.Summarize(records),
		"records": metrics.Compute(records),
	})
}

// GetStats handles GET /stats and reports per-backend record counts.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{}

	sqliteCount, err := h.sqlite.Count(r.Context())
	if err != nil {
		stats["sqlite"] = map[string]any{"available": true, "error": err.Error()}
	} else {
		stats["sqlite"] = map[string]any{"available": true, "records": sqliteCount}
	}

	if h.mongo == nil {
		stats["mongo"] = map[string]any{"available": false}
	} else if mongoCount, err := h.mongo.Count(r.Context()); err != nil {
		stats["mongo"] = map[string]any{"available": true, "error": err.Error()}
	} else {
		stats["mongo"] = map[string]any{"available": true, "records": mongoCount}
	}

	respondJSON(w, http.StatusOK, stats)
}

// Ingest handles POST /ingest
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tickers []string `json:"tickers"`
		Backend string   `json:"backend"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Tickers) == 0 {
		respondError(w, http.StatusBadRequest, "at least one ticker is required")
		return
	}

	st, err := h.resolveStore(req.Backend)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	report := h.ingester.Run(r.Context(), req.Tickers, st)
	respondJSON(w, http.StatusOK, report)
}

// RunQuery handles POST /query, the read-only ad-hoc query surface over the
// relational backend.
func (h *Handler) RunQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.sqlite.Query(r.Context(), req.Query)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetDocument handles GET /documents/{ticker} against the document backend.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if h.mongo == nil {
		respondError(w, http.StatusServiceUnavailable, "document store unavailable")
		return
	}

	ticker := strings.ToUpper(mux.Vars(r)["ticker"])
	doc, err := h.mongo.Document(r.Context(), ticker)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		respondError(w, http.StatusServiceUnavailable, "document store unavailable")
		return
	}
	respondError(w, http.StatusBadRequest, err.Error())
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
