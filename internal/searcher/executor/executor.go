// Package executor runs a query against the active snapshot: normalize,
// build the query vector, rank by cosine similarity, then attach the best
// paragraph and display fields to each hit.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/vector"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/paragraph"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/snippet"
	apperrors "github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/tracing"
)

// Hit is one ranked document.
type Hit struct {
	DocID        int     `json:"doc_id"`
	Score        float64 `json:"score"`
	Filename     string  `json:"filename"`
	Paragraph    string  `json:"paragraph"`
	DisplayTitle string  `json:"display_title"`
	Source       string  `json:"source"`
	Snippet      string  `json:"snippet"`
}

type SearchResult struct {
	Query      string  `json:"query"`
	TotalHits  int     `json:"total_hits"`
	Results    []Hit   `json:"results"`
	State      string  `json:"state"`
	Generation uint64  `json:"generation"`
	TookMS     float64 `json:"took_ms"`
}

// SnapshotSource is satisfied by *indexer.Engine.
type SnapshotSource interface {
	Current() (*indexer.Snapshot, indexer.State)
}

type Options struct {
	DefaultLimit  int
	MaxResults    int
	SnippetLength int
	// Summarizer is optional; without one snippets are truncated paragraphs.
	Summarizer snippet.Summarizer
	Metrics    *metrics.Metrics
}

type Executor struct {
	source SnapshotSource
	opts   Options
	logger *slog.Logger
}

func New(source SnapshotSource, opts Options) *Executor {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = merger.DefaultLimit
	}
	if opts.MaxResults < opts.DefaultLimit {
		opts.MaxResults = opts.DefaultLimit
	}
	return &Executor{
		source: source,
		opts:   opts,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Limit clamps a requested result count to [1, MaxResults], using the
// default for non-positive requests.
func (e *Executor) Limit(requested int) int {
	if requested <= 0 {
		return e.opts.DefaultLimit
	}
	if requested > e.opts.MaxResults {
		return e.opts.MaxResults
	}
	return requested
}

// Rank scores terms against snap and returns the top limit documents in rank
// order: descending score, ties by ascending document id, positive scores
// only.
func Rank(snap *indexer.Snapshot, terms []string, limit int) []ranker.ScoredDoc {
	if snap == nil || len(terms) == 0 || snap.Corpus.Len() == 0 {
		return nil
	}
	q := vector.Query(snap.Index, terms)
	if len(q) == 0 {
		return nil
	}
	scored := ranker.Rank(snap.Index, snap.Vectors, q)
	return merger.TopK([][]ranker.ScoredDoc{scored}, limit)
}

// Search answers query from the active snapshot. Queries that normalize to
// nothing, and an empty corpus, give an empty result rather than an error.
// While the very first build is running there is nothing to serve and
// ErrEngineNotReady is returned; during later rebuilds the previous snapshot
// keeps answering.
func (e *Executor) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	start := time.Now()
	limit = e.Limit(limit)
	if len(query) > parser.MaxQueryLength {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "query longer than %d bytes", parser.MaxQueryLength)
	}

	snap, state := e.source.Current()
	if snap == nil {
		if state == indexer.StateBuilding {
			e.recordQuery("not_ready", 0)
			return nil, apperrors.ErrEngineNotReady
		}
		e.recordQuery("zero_result", 0)
		return e.empty(query, state, 0, start), nil
	}

	traceID := logger.RequestID(ctx)
	ctx, span := tracing.StartSpan(ctx, "search", traceID)
	defer func() {
		span.End()
		span.Log(ctx, e.logger, slog.LevelDebug)
	}()

	_, normSpan := tracing.StartChildSpan(ctx, "normalize")
	plan := parser.Parse(query)
	normSpan.End()
	if plan.Empty() {
		e.recordQuery("empty_query", 0)
		return e.empty(plan.RawQuery, state, snap.Generation, start), nil
	}

	_, scoreSpan := tracing.StartChildSpan(ctx, "score")
	top := Rank(snap, plan.Terms, limit)
	scoreSpan.SetAttr("results", len(top))
	scoreSpan.End()

	_, paraSpan := tracing.StartChildSpan(ctx, "paragraph")
	hits, err := e.decorate(ctx, snap, plan, top)
	paraSpan.End()
	if err != nil {
		e.recordQuery("error", 0)
		return nil, fmt.Errorf("selecting paragraphs: %w", err)
	}

	if len(hits) == 0 {
		e.recordQuery("zero_result", 0)
	} else {
		e.recordQuery("hit", len(hits))
	}
	logger.FromContext(ctx).Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"results", len(hits),
		"generation", snap.Generation,
	)
	return &SearchResult{
		Query:      plan.RawQuery,
		TotalHits:  len(hits),
		Results:    hits,
		State:      state.String(),
		Generation: snap.Generation,
		TookMS:     float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

// decorate attaches paragraph and display fields to each ranked document.
// Documents are handled concurrently since a summarizer may be remote.
func (e *Executor) decorate(ctx context.Context, snap *indexer.Snapshot, plan *parser.QueryPlan, top []ranker.ScoredDoc) ([]Hit, error) {
	hits := make([]Hit, len(top))
	terms := plan.Distinct()
	idf := func(term string) float64 { return vector.IDF(snap.Index, term) }

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, sd := range top {
		g.Go(func() error {
			doc, ok := snap.Corpus.Doc(sd.DocID)
			if !ok {
				return fmt.Errorf("ranked document %d missing from corpus", sd.DocID)
			}
			para := paragraph.SelectBest(doc.Text, terms, idf)
			hits[i] = Hit{
				DocID:        sd.DocID,
				Score:        sd.Score,
				Filename:     doc.Filename,
				Paragraph:    para,
				DisplayTitle: snippet.FullTitle(doc.Filename, snippet.CleanText(para)),
				Source:       snippet.SourceLabel(doc.Filename),
				Snippet:      snippet.Build(gctx, e.opts.Summarizer, para, plan.RawQuery, e.opts.SnippetLength),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hits, nil
}

func (e *Executor) empty(query string, state indexer.State, gen uint64, start time.Time) *SearchResult {
	return &SearchResult{
		Query:      query,
		Results:    []Hit{},
		State:      state.String(),
		Generation: gen,
		TookMS:     float64(time.Since(start).Microseconds()) / 1000,
	}
}

func (e *Executor) recordQuery(resultType string, results int) {
	if m := e.opts.Metrics; m != nil {
		m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		m.SearchResultsCount.Observe(float64(results))
	}
}
