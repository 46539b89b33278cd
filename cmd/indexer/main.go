// Command indexer builds the retrieval snapshot offline and exits.
//
// It loads the corpus, reuses the persisted snapshot when it is still valid
// (unless -force is given), otherwise builds and saves a new one, then
// announces the result on the index-complete topic when Kafka is enabled.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-force]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	force := flag.Bool("force", false, "rebuild even if the persisted snapshot is valid")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *force); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, force bool) error {
	slog.Info("starting offline index build",
		"corpus_dir", cfg.Corpus.Dir,
		"data_dir", cfg.Index.DataDir,
		"force", force,
	)
	engine := indexer.NewEngine(
		corpus.NewDirLoader(cfg.Corpus.Dir, cfg.Corpus.Extensions),
		indexer.OptionsFromConfig(cfg.Index, metrics.New(nil)),
	)

	var snap *indexer.Snapshot
	if force {
		var err error
		if snap, err = engine.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}
	} else {
		if err := engine.Init(ctx); err != nil {
			return fmt.Errorf("building index: %w", err)
		}
		snap = engine.Snapshot()
	}

	event := indexer.CompleteEvent(snap)
	slog.Info("index ready",
		"source", event.Source,
		"documents", event.Documents,
		"terms", event.Terms,
		"fingerprint", event.Fingerprint,
	)

	if !cfg.Kafka.Enabled {
		return nil
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer producer.Close()
	if err := producer.Publish(ctx, kafka.Event{Key: event.Fingerprint, Value: event}); err != nil {
		return fmt.Errorf("announcing index: %w", err)
	}
	slog.Info("index-complete event published", "topic", cfg.Kafka.Topics.IndexComplete)
	return nil
}
