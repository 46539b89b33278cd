// Package handler exposes the search engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/history"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/metrics"
)

// UserHeader identifies the caller for search history.
const UserHeader = "X-User-ID"

// Searcher is satisfied by *executor.Executor.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
	Limit(requested int) int
}

// Engine is satisfied by *indexer.Engine.
type Engine interface {
	Rebuild(ctx context.Context) (*indexer.Snapshot, error)
	DocumentText(filename string) (string, error)
	Stats() indexer.Stats
}

// Deps are the handler's collaborators. Cache, History, Collector and
// Metrics are optional.
type Deps struct {
	Executor  Searcher
	Engine    Engine
	Cache     *cache.QueryCache
	History   *history.Store
	Collector *analytics.Collector
	Metrics   *metrics.Metrics
}

type Handler struct {
	deps   Deps
	logger *slog.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		deps:   d,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Register installs the search API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/{filename}", h.Document)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/history", h.History)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	values := r.URL.Query()
	if !values.Has("q") {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	query := values.Get("q")
	limit, err := parseLimit(values.Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit = h.deps.Executor.Limit(limit)

	plan := parser.Parse(query)
	cacheStatus := "bypass"
	var result *executor.SearchResult
	if h.deps.Cache != nil && !plan.Empty() && len(query) <= parser.MaxQueryLength {
		var hit bool
		result, hit, err = h.deps.Cache.GetOrCompute(ctx, plan.CacheKey(), limit, func() (*executor.SearchResult, error) {
			return h.deps.Executor.Search(ctx, query, limit)
		})
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.deps.Executor.Search(ctx, query, limit)
	}
	latency := time.Since(start)
	if h.deps.Metrics != nil {
		h.deps.Metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	}

	event := analytics.SearchEvent{
		Type:      analytics.EventSearch,
		Query:     query,
		Terms:     plan.Terms,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheStatus == "hit",
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	}
	if err != nil {
		event.Outcome = analytics.OutcomeError
		if errors.Is(err, apperrors.ErrEngineNotReady) {
			event.Outcome = analytics.OutcomeNotReady
		}
		h.deps.Collector.Track(event)
		log.Warn("search failed", "query", query, "error", err)
		h.writeAppError(w, err, "search failed")
		return
	}

	event.TotalHits = result.TotalHits
	event.Returned = len(result.Results)
	event.State = result.State
	event.Generation = result.Generation
	switch {
	case plan.Empty():
		event.Outcome = analytics.OutcomeEmptyQuery
	case result.TotalHits == 0:
		event.Outcome = analytics.OutcomeZeroResult
	default:
		event.Outcome = analytics.OutcomeHit
	}
	h.deps.Collector.Track(event)
	h.recordHistory(ctx, r.Header.Get(UserHeader), query, plan)

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"cache", cacheStatus,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// recordHistory stores the query off the request path.
func (h *Handler) recordHistory(ctx context.Context, userID, query string, plan *parser.QueryPlan) {
	if h.deps.History == nil || userID == "" || plan.Empty() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := h.deps.History.Record(ctx, userID, query); err != nil {
			h.logger.Warn("recording search history failed", "user_id", userID, "error", err)
		}
	}()
}

type documentResponse struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	text, err := h.deps.Engine.DocumentText(filename)
	if err != nil {
		h.writeAppError(w, err, "loading document failed")
		return
	}
	h.writeJSON(w, http.StatusOK, documentResponse{Filename: filename, Text: text})
}

type rebuildResponse struct {
	Status     string  `json:"status"`
	Documents  int     `json:"documents"`
	Terms      int     `json:"terms"`
	Generation uint64  `json:"generation"`
	TookMS     float64 `json:"took_ms"`
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, err := h.deps.Engine.Rebuild(r.Context())
	took := time.Since(start)
	event := analytics.RebuildEvent{
		Type:       analytics.EventRebuild,
		DurationMs: took.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if err != nil {
		event.Status = "error"
		h.deps.Collector.Track(event)
		logger.FromContext(r.Context()).Error("rebuild failed", "error", err)
		h.writeAppError(w, err, "rebuild failed")
		return
	}
	event.Status = "success"
	event.Documents = snap.Corpus.Len()
	event.Terms = snap.Index.NumTerms()
	event.Generation = snap.Generation
	h.deps.Collector.Track(event)

	h.writeJSON(w, http.StatusOK, rebuildResponse{
		Status:     "rebuilt",
		Documents:  event.Documents,
		Terms:      event.Terms,
		Generation: snap.Generation,
		TookMS:     float64(took.Microseconds()) / 1000,
	})
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.deps.Engine.Stats())
}

type historyResponse struct {
	UserID   string          `json:"user_id"`
	Searches []history.Entry `json:"searches"`
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(UserHeader))
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := h.deps.History.Recent(r.Context(), userID, limit)
	if err != nil {
		h.writeAppError(w, err, "loading history failed")
		return
	}
	h.writeJSON(w, http.StatusOK, historyResponse{UserID: userID, Searches: entries})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	st := h.deps.Cache.Stats()
	total := st.Hits + st.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(st.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":       st.Hits,
		"misses":     st.Misses,
		"errors":     st.Errors,
		"total":      total,
		"hit_rate":   fmt.Sprintf("%.1f%%", hitRate),
		"generation": st.Generation,
		"breaker":    st.Breaker,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.deps.Cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to a status code. Client and availability errors
// carry their message; anything else is reported as fallback.
func (h *Handler) writeAppError(w http.ResponseWriter, err error, fallback string) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.writeError(w, status, fallback)
		return
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		h.writeError(w, status, appErr.Message)
		return
	}
	h.writeError(w, status, err.Error())
}
