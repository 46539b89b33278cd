// Package indexer owns the lifecycle of the retrieval snapshot: loading the
// corpus, reusing a persisted index when it still matches, otherwise building
// index and vectors off to the side and swapping them in atomically.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/vector"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/tracing"
)

// State is the engine lifecycle phase.
type State int32

const (
	StateEmpty State = iota
	StateBuilding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Snapshot is one consistent (corpus, index, vectors) triple. It is never
// modified after it is installed.
type Snapshot struct {
	Corpus      *corpus.Corpus
	Index       *index.Index
	Vectors     []vector.Vector
	Generation  uint64
	Fingerprint string
	BuiltAt     time.Time
	// Source is "build" or "snapshot" depending on how the index was obtained.
	Source string
}

// Stats summarises the active snapshot for the stats endpoint.
type Stats struct {
	State       string    `json:"state"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Generation  uint64    `json:"generation"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	BuiltAt     time.Time `json:"built_at,omitzero"`
	Source      string    `json:"source,omitempty"`
}

// Options configures an Engine. An empty DataDir disables persistence.
type Options struct {
	DataDir           string
	VerifyFingerprint bool
	Parallelism       int
	BuildTimeout      time.Duration
	Metrics           *metrics.Metrics
}

// OptionsFromConfig maps the index config section onto engine options.
func OptionsFromConfig(cfg config.IndexConfig, m *metrics.Metrics) Options {
	return Options{
		DataDir:           cfg.DataDir,
		VerifyFingerprint: cfg.VerifyFingerprint,
		Parallelism:       cfg.Parallelism,
		BuildTimeout:      cfg.RebuildTimeout,
		Metrics:           m,
	}
}

type Engine struct {
	loader  corpus.Loader
	writer  *segment.Writer
	reader  *segment.Reader
	opts    Options
	logger  *slog.Logger
	snap    atomic.Pointer[Snapshot]
	state   atomic.Int32
	gen     atomic.Uint64
	group   singleflight.Group
	hooksMu sync.RWMutex
	onSwap  []func(*Snapshot)

	// requests numbers Init/Rebuild calls so a caller can tell whether the
	// build it joined read the corpus after it asked.
	requests atomic.Uint64
}

func NewEngine(loader corpus.Loader, opts Options) *Engine {
	e := &Engine{
		loader: loader,
		opts:   opts,
		logger: slog.Default().With("component", "indexer"),
	}
	if opts.DataDir != "" {
		e.writer = segment.NewWriter(opts.DataDir)
		e.reader = segment.NewReader(opts.DataDir)
	}
	e.setState(StateEmpty)
	return e
}

// OnSwap registers fn to run after every snapshot installation.
func (e *Engine) OnSwap(fn func(*Snapshot)) {
	e.hooksMu.Lock()
	e.onSwap = append(e.onSwap, fn)
	e.hooksMu.Unlock()
}

// Init loads the corpus and installs a snapshot, reusing the persisted one
// when it is valid for the current corpus.
func (e *Engine) Init(ctx context.Context) error {
	_, err := e.run(ctx, false)
	return err
}

// Rebuild reloads the corpus and builds a fresh snapshot regardless of what
// is on disk. Calls that arrive before a build reads the corpus share it; a
// call that arrives after that waits and then builds again, so the returned
// snapshot always reflects the corpus as of the call. Readers keep using the
// previous snapshot until the new one is swapped in.
func (e *Engine) Rebuild(ctx context.Context) (*Snapshot, error) {
	return e.run(ctx, true)
}

// buildOutcome is what one shared build hands to every caller that joined it.
type buildOutcome struct {
	snap *Snapshot
	// covers is the highest request number issued before the corpus was read.
	covers uint64
	forced bool
}

func (e *Engine) run(ctx context.Context, force bool) (*Snapshot, error) {
	seq := e.requests.Add(1)
	for {
		// The build outlives a cancelled caller so that joined callers still
		// get a result; BuildTimeout bounds it instead.
		ch := e.group.DoChan("build", func() (any, error) {
			out := buildOutcome{covers: e.requests.Load(), forced: force}
			err := resilience.WithTimeout(context.WithoutCancel(ctx), e.opts.BuildTimeout, "index build", func(ctx context.Context) error {
				var err error
				out.snap, err = e.build(ctx, force)
				return err
			})
			if err != nil {
				return nil, err
			}
			return out, nil
		})
		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		out := res.Val.(buildOutcome)
		if !force || (out.forced && out.covers >= seq) {
			return out.snap, nil
		}
		// Joined a build that read the corpus before this rebuild was asked
		// for, or one allowed to reuse the persisted snapshot. Run again.
		e.logger.Debug("rebuild joined an earlier build, running again", "request", seq, "covered", out.covers)
	}
}

func (e *Engine) build(ctx context.Context, force bool) (*Snapshot, error) {
	start := time.Now()
	traceID := logger.RequestID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	ctx, span := tracing.StartSpan(ctx, "index.build", traceID)
	defer func() {
		span.End()
		span.Log(ctx, e.logger, slog.LevelInfo)
	}()

	e.setState(StateBuilding)
	snap, err := e.buildSnapshot(ctx, force)
	if err != nil {
		e.restoreState()
		e.recordRebuild("error", start)
		e.logger.Error("index build failed", "error", err, "duration", time.Since(start))
		return nil, err
	}
	e.install(snap)
	if snap.Source == "build" {
		e.recordRebuild("success", start)
	}
	span.SetAttr("documents", snap.Corpus.Len())
	span.SetAttr("source", snap.Source)
	e.logger.Info("snapshot installed",
		"source", snap.Source,
		"documents", snap.Corpus.Len(),
		"terms", snap.Index.NumTerms(),
		"generation", snap.Generation,
		"duration", time.Since(start),
	)
	return snap, nil
}

func (e *Engine) buildSnapshot(ctx context.Context, force bool) (*Snapshot, error) {
	_, loadSpan := tracing.StartChildSpan(ctx, "load_corpus")
	entries, err := e.loader.Load(ctx)
	loadSpan.End()
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	c := corpus.New(entries)
	fingerprint := c.Fingerprint()

	if c.Len() == 0 {
		e.logger.Warn("corpus is empty; serving no results")
		return &Snapshot{
			Corpus:      c,
			Index:       index.New(nil, 0),
			Fingerprint: fingerprint,
			BuiltAt:     time.Now().UTC(),
			Source:      "build",
		}, nil
	}

	if !force && e.reader != nil {
		res := e.reader.Load(segment.Expect{
			DocCount:          c.Len(),
			Fingerprint:       fingerprint,
			VerifyFingerprint: e.opts.VerifyFingerprint,
		})
		if res.Valid {
			e.recordSnapshotLoad("valid")
			builtAt := res.Manifest.BuiltAt
			if builtAt.IsZero() {
				builtAt = time.Now().UTC()
			}
			return &Snapshot{
				Corpus:      c,
				Index:       res.Index,
				Vectors:     res.Vectors,
				Fingerprint: fingerprint,
				BuiltAt:     builtAt,
				Source:      "snapshot",
			}, nil
		}
		e.recordSnapshotLoad(res.Reason)
		e.logger.Warn("persisted snapshot unusable, rebuilding",
			"reason", res.Reason,
			"detail", res.Detail,
			"data_dir", e.opts.DataDir,
		)
	}

	_, idxSpan := tracing.StartChildSpan(ctx, "tokenize")
	idx, err := index.Build(ctx, c.Documents(), e.opts.Parallelism)
	idxSpan.End()
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	_, vecSpan := tracing.StartChildSpan(ctx, "vectorize")
	vectors := vector.Build(idx)
	vecSpan.End()

	snap := &Snapshot{
		Corpus:      c,
		Index:       idx,
		Vectors:     vectors,
		Fingerprint: fingerprint,
		BuiltAt:     time.Now().UTC(),
		Source:      "build",
	}
	if e.writer != nil {
		_, saveSpan := tracing.StartChildSpan(ctx, "persist")
		err := e.writer.Write(idx, vectors, segment.Manifest{Fingerprint: fingerprint, BuiltAt: snap.BuiltAt})
		saveSpan.End()
		if err != nil {
			// The in-memory snapshot is still good; the next start rebuilds.
			e.logger.Error("persisting snapshot failed", "error", err, "data_dir", e.opts.DataDir)
		}
	}
	return snap, nil
}

func (e *Engine) install(snap *Snapshot) {
	snap.Generation = e.gen.Add(1)
	e.snap.Store(snap)
	if snap.Corpus.Len() == 0 {
		e.setState(StateEmpty)
	} else {
		e.setState(StateReady)
	}
	if m := e.opts.Metrics; m != nil {
		m.IndexedDocuments.Set(float64(snap.Corpus.Len()))
		m.IndexedTerms.Set(float64(snap.Index.NumTerms()))
	}

	e.hooksMu.RLock()
	hooks := e.onSwap
	e.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(snap)
	}
}

// restoreState puts the state back to whatever the installed snapshot
// supports after a failed build.
func (e *Engine) restoreState() {
	snap := e.snap.Load()
	if snap != nil && snap.Corpus.Len() > 0 {
		e.setState(StateReady)
		return
	}
	e.setState(StateEmpty)
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	if e.opts.Metrics != nil {
		e.opts.Metrics.EngineState.Set(float64(s))
	}
}

func (e *Engine) recordRebuild(status string, start time.Time) {
	if m := e.opts.Metrics; m != nil {
		m.IndexRebuildsTotal.WithLabelValues(status).Inc()
		if status == "success" {
			m.IndexBuildDuration.Observe(time.Since(start).Seconds())
		}
	}
}

func (e *Engine) recordSnapshotLoad(outcome string) {
	if m := e.opts.Metrics; m != nil {
		m.SnapshotLoadsTotal.WithLabelValues(outcome).Inc()
	}
}

// State reports the current lifecycle phase.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Snapshot returns the active snapshot, or nil before the first install.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Current returns the active snapshot together with the state observed at
// the same moment.
func (e *Engine) Current() (*Snapshot, State) {
	return e.snap.Load(), e.State()
}

// DocumentText returns the raw text of a document by filename.
func (e *Engine) DocumentText(filename string) (string, error) {
	snap := e.snap.Load()
	if snap == nil {
		return "", apperrors.ErrEngineNotReady
	}
	doc, ok := snap.Corpus.Lookup(filename)
	if !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, filename)
	}
	return doc.Text, nil
}

func (e *Engine) Stats() Stats {
	snap, state := e.Current()
	st := Stats{State: state.String()}
	if snap == nil {
		return st
	}
	st.Documents = snap.Corpus.Len()
	st.Terms = snap.Index.NumTerms()
	st.Generation = snap.Generation
	st.Fingerprint = snap.Fingerprint
	st.BuiltAt = snap.BuiltAt
	st.Source = snap.Source
	return st
}
