package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/kafka"
)

// BatchPublisher is satisfied by *kafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type CollectorOptions struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector hands analytics events to an in-process Aggregator immediately
// and ships them to Kafka in batches off the request path. A nil publisher
// keeps only the in-process view. When the buffer is full events are
// dropped rather than slowing down searches.
type Collector struct {
	publisher  BatchPublisher
	aggregator *Aggregator
	opts       CollectorOptions
	eventCh    chan any
	dropped    atomic.Int64
	logger     *slog.Logger
	closeOnce  sync.Once
	stop       chan struct{}
	done       chan struct{}
}

func NewCollector(publisher BatchPublisher, aggregator *Aggregator, opts CollectorOptions) *Collector {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:  publisher,
		aggregator: aggregator,
		opts:       opts,
		eventCh:    make(chan any, opts.BufferSize),
		logger:     slog.Default().With("component", "analytics-collector"),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the publish loop. It returns immediately; the loop exits
// when ctx is cancelled or Close is called, flushing what it holds.
func (c *Collector) Start(ctx context.Context) {
	go c.loop(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.opts.BatchSize,
		"flush_interval", c.opts.FlushInterval,
		"publishing", c.publisher != nil,
	)
}

// Track records event. It never blocks.
func (c *Collector) Track(event any) {
	if c == nil {
		return
	}
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if c.publisher == nil {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops the publish loop and waits for the final flush. It must only
// be called after Start. Events tracked afterwards still reach the
// aggregator but are never published.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Collector) loop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.opts.BatchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 || c.publisher == nil {
			batch = batch[:0]
			return
		}
		if err := c.publisher.PublishBatch(ctx, batch); err != nil {
			c.logger.Error("failed to publish analytics batch", "events", len(batch), "error", err)
		}
		batch = make([]kafka.Event, 0, c.opts.BatchSize)
	}

	for {
		select {
		case event := <-c.eventCh:
			batch = append(batch, kafka.Event{Key: keyFor(event), Value: event})
			if len(batch) >= c.opts.BatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-c.stop:
			c.finish(&batch, flush)
			return
		case <-ctx.Done():
			c.finish(&batch, flush)
			return
		}
	}
}

func (c *Collector) finish(batch *[]kafka.Event, flush func(context.Context)) {
	for drained := false; !drained; {
		select {
		case event := <-c.eventCh:
			*batch = append(*batch, kafka.Event{Key: keyFor(event), Value: event})
		default:
			drained = true
		}
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	flush(flushCtx)
}

// keyFor partitions search events by query so one query's history stays
// ordered.
func keyFor(event any) string {
	switch ev := event.(type) {
	case SearchEvent:
		return ev.Query
	case *SearchEvent:
		return ev.Query
	case RebuildEvent, *RebuildEvent:
		return string(EventRebuild)
	default:
		return "analytics"
	}
}
