package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/benvon/apigate/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// LogStore provides read access to the persisted request log.
type LogStore interface {
	Query(ctx context.Context, filter models.LogFilter) ([]*models.RequestLogEntry, int64, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// StatsHandler serves usage statistics and filtered log pages. Thin reads
// over the log store; not part of the proxy pipeline.
type StatsHandler struct {
	store LogStore
	log   *zap.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(store LogStore, log *zap.Logger) *StatsHandler {
	return &StatsHandler{store: store, log: log}
}

// RegisterRoutes registers the stats and log-query endpoints.
func (h *StatsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/stats", h.Stats).Methods("GET")
	r.HandleFunc("/logs", h.Logs).Methods("GET")
}

// Stats reports aggregate gateway usage.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.log.Error("failed_to_get_stats", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal server error", "Failed to get statistics")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Logs serves a filtered page of recent request log entries.
func (h *StatsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	filter := models.LogFilter{
		ServiceName: r.URL.Query().Get("service"),
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	}
	if code := r.URL.Query().Get("status_code"); code != "" {
		parsed, err := strconv.Atoi(code)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Invalid parameter", "status_code must be an integer")
			return
		}
		filter.StatusCode = parsed
	}

	entries, total, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.log.Error("failed_to_query_logs", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal server error", "Failed to get request logs")
		return
	}

	if entries == nil {
		entries = []*models.RequestLogEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"logs":   entries,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func queryInt(r *http.Request, name string, defaultValue int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return defaultValue
}
