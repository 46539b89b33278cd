package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
}

func (f *fakePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(SearchEvent{Type: EventSearch, Query: "Paging", TotalHits: 3, LatencyMs: 10, Outcome: OutcomeHit})
	agg.Record(SearchEvent{Type: EventSearch, Query: "paging", TotalHits: 3, LatencyMs: 20, CacheHit: true, Outcome: OutcomeHit})
	agg.Record(&SearchEvent{Type: EventSearch, Query: "zebra", LatencyMs: 30, Outcome: OutcomeZeroResult})
	agg.Record(SearchEvent{Type: EventSearch, Query: "kernel", Outcome: OutcomeNotReady})
	agg.Record(RebuildEvent{Type: EventRebuild, Status: "success", Generation: 3})
	agg.Record(RebuildEvent{Type: EventRebuild, Status: "success", Generation: 2})
	agg.Record(RebuildEvent{Type: EventRebuild, Status: "error"})
	agg.Record("not an event")

	st := agg.Stats()
	if st.TotalSearches != 4 || st.CacheHits != 1 || st.CacheMisses != 3 {
		t.Errorf("search counters = %+v", st)
	}
	if st.ZeroResultCount != 1 || st.NotReadyCount != 1 {
		t.Errorf("zero=%d notReady=%d", st.ZeroResultCount, st.NotReadyCount)
	}
	if st.Rebuilds != 2 || st.FailedRebuilds != 1 || st.LastGeneration != 3 {
		t.Errorf("rebuild counters = %+v", st)
	}
	if len(st.TopQueries) == 0 || st.TopQueries[0] != (QueryCount{Query: "paging", Count: 2}) {
		t.Errorf("top queries = %v", st.TopQueries)
	}
	if len(st.ZeroResultQueries) != 1 || st.ZeroResultQueries[0].Query != "zebra" {
		t.Errorf("zero result queries = %v", st.ZeroResultQueries)
	}
	if st.P99LatencyMs != 30 {
		t.Errorf("p99 = %d", st.P99LatencyMs)
	}
}

func TestTopNTieBreak(t *testing.T) {
	got := topN(map[string]int64{"b": 1, "a": 1, "c": 2}, 2)
	want := []QueryCount{{"c", 2}, {"a", 1}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("topN = %v, want %v", got, want)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if p := percentile(sorted, 50); p != 6 {
		t.Errorf("p50 = %d", p)
	}
	if p := percentile(sorted, 100); p != 10 {
		t.Errorf("p100 = %d", p)
	}
	if p := percentile(nil, 50); p != 0 {
		t.Errorf("empty p50 = %d", p)
	}
}

func TestHandleEventDispatchesByType(t *testing.T) {
	agg := NewAggregator()
	h := HandleEvent(agg)
	search, _ := json.Marshal(SearchEvent{Type: EventSearch, Query: "threads", TotalHits: 1, Outcome: OutcomeHit})
	rebuild, _ := json.Marshal(RebuildEvent{Type: EventRebuild, Status: "success", Generation: 7})
	for _, msg := range [][]byte{search, rebuild, []byte("{bad json"), []byte(`{"type":"mystery"}`)} {
		if err := h(context.Background(), nil, msg); err != nil {
			t.Fatalf("handler returned %v", err)
		}
	}
	st := agg.Stats()
	if st.TotalSearches != 1 || st.Rebuilds != 1 || st.LastGeneration != 7 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCollectorFeedsAggregatorAndPublishes(t *testing.T) {
	agg := NewAggregator()
	pub := &fakePublisher{}
	c := NewCollector(pub, agg, CollectorOptions{BatchSize: 2, FlushInterval: time.Hour})
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.Track(SearchEvent{Type: EventSearch, Query: "q", TotalHits: 1, Outcome: OutcomeHit})
	}
	if got := agg.Stats().TotalSearches; got != 5 {
		t.Errorf("aggregator saw %d searches", got)
	}
	c.Close()
	if got := pub.count(); got != 5 {
		t.Errorf("published %d events, want 5", got)
	}
	// Tracking after Close must not panic.
	c.Track(RebuildEvent{Type: EventRebuild, Status: "success"})
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(&fakePublisher{}, nil, CollectorOptions{BufferSize: 1})
	// Not started, so nothing drains the buffer.
	c.Track(SearchEvent{Query: "a"})
	c.Track(SearchEvent{Query: "b"})
	if c.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", c.Dropped())
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.Track(SearchEvent{})
}

func TestKeyFor(t *testing.T) {
	if k := keyFor(SearchEvent{Query: "paging"}); k != "paging" {
		t.Errorf("search key = %q", k)
	}
	if k := keyFor(&RebuildEvent{}); k != "rebuild" {
		t.Errorf("rebuild key = %q", k)
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(SearchEvent{Query: "paging", TotalHits: 1, Outcome: OutcomeHit})
	rec := httptest.NewRecorder()
	NewHandler(agg, nil).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["total_searches"] != float64(1) {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["persisted"]; ok {
		t.Error("persisted present without a store")
	}
}
