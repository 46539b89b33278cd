package analytics

import "time"

type EventType string

const (
	EventSearch  EventType = "search"
	EventRebuild EventType = "rebuild"
)

// Search outcomes, matching the result_type label of the search metrics.
const (
	OutcomeHit        = "hit"
	OutcomeZeroResult = "zero_result"
	OutcomeEmptyQuery = "empty_query"
	OutcomeNotReady   = "not_ready"
	OutcomeError      = "error"
)

// SearchEvent describes one answered query.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Outcome    string    `json:"outcome"`
	State      string    `json:"state"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// RebuildEvent describes one finished (or failed) index build.
type RebuildEvent struct {
	Type       EventType `json:"type"`
	Status     string    `json:"status"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Generation uint64    `json:"generation"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// envelope peeks at the type tag before decoding the full event.
type envelope struct {
	Type EventType `json:"type"`
}
