package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler serves the aggregator's counters. With a store attached the most
// recently persisted snapshot is returned alongside, which survives restarts.
type Handler struct {
	aggregator *Aggregator
	store      *Store
	logger     *slog.Logger
}

type statsResponse struct {
	AggregatedStats
	Persisted *AggregatedStats `json:"persisted,omitempty"`
}

func NewHandler(aggregator *Aggregator, store *Store) *Handler {
	return &Handler{
		aggregator: aggregator,
		store:      store,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{AggregatedStats: h.aggregator.Stats()}
	if h.store != nil {
		persisted, err := h.store.LatestSnapshot(r.Context())
		if err != nil {
			h.logger.Warn("loading persisted analytics failed", "error", err)
		}
		resp.Persisted = persisted
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
