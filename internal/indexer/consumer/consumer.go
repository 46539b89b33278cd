// Package consumer reads corpus-changed events from Kafka and rebuilds the
// retrieval snapshot in response.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/kafka"
)

// Rebuilder is satisfied by *indexer.Engine.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*indexer.Snapshot, error)
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RebuildConsumer wraps a Kafka consumer to drive snapshot rebuilds.
type RebuildConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a RebuildConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *RebuildConsumer {
	return &RebuildConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "rebuild-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (rc *RebuildConsumer) Start(ctx context.Context) error {
	rc.logger.Info("rebuild consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that rebuilds on every
// corpus-changed event. Bursts of events collapse into shared rebuilds inside
// the engine. When pub is non-nil an index-complete event follows each
// successful rebuild.
func HandleMessage(r Rebuilder, pub Publisher) kafka.MessageHandler {
	logger := slog.Default().With("component", "rebuild-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[indexer.CorpusChangedEvent](value)
		if err != nil {
			// Undecodable events are dropped, not retried.
			logger.Error("failed to decode corpus-changed event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Info("corpus changed, rebuilding",
			"reason", event.Reason,
			"files", len(event.Files),
		)
		snap, err := r.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuilding after corpus change: %w", err)
		}
		if pub != nil {
			complete := indexer.CompleteEvent(snap)
			if err := pub.Publish(ctx, kafka.Event{Key: snap.Fingerprint, Value: complete}); err != nil {
				logger.Warn("failed to publish index-complete event", "error", err)
			}
		}
		return nil
	}
}
