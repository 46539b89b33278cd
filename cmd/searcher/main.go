// Command searcher serves TF-IDF search over the processed notes corpus.
//
// On start it loads the corpus, reuses the persisted snapshot when it still
// matches, and otherwise builds one. Redis (query cache), PostgreSQL (search
// history, analytics snapshots) and Kafka (rebuild triggers, analytics) are
// each optional.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/history"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"corpus_dir", cfg.Corpus.Dir,
		"data_dir", cfg.Index.DataDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	engine := indexer.NewEngine(
		corpus.NewDirLoader(cfg.Corpus.Dir, cfg.Corpus.Extensions),
		indexer.OptionsFromConfig(cfg.Index, m),
	)

	checker := health.NewChecker()
	checker.Register("index_engine", health.EngineCheck(func() (string, bool) {
		snap, state := engine.Current()
		return state.String(), snap != nil
	}))

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			engine.OnSwap(func(snap *indexer.Snapshot) { queryCache.SetGeneration(snap.Generation) })
			checker.Register("redis", health.PingCheck(redisClient))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var historyStore *history.Store
	var analyticsStore *analytics.Store
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, search history disabled", "error", err)
		} else {
			defer pg.Close()
			err := pg.InTx(ctx, func(tx *sql.Tx) error {
				if err := history.Migrate(tx); err != nil {
					return err
				}
				return analytics.Migrate(tx)
			})
			if err != nil {
				slog.Error("database migration failed, search history disabled", "error", err)
			} else {
				historyStore = history.New(pg.DB, cfg.History.Limit)
				analyticsStore = analytics.NewStore(pg.DB)
				checker.Register("postgres", health.PingCheck(pg))
				slog.Info("search history enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
			}
		}
	}

	aggregator := analytics.NewAggregator()
	var analyticsPublisher analytics.BatchPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		analyticsPublisher = producer
	}
	collector := analytics.NewCollector(analyticsPublisher, aggregator, analytics.CollectorOptions{})
	collector.Start(ctx)
	defer collector.Close()
	if analyticsStore != nil {
		analyticsStore.StartPeriodicSave(ctx, aggregator, time.Minute)
	}

	// A failed first build leaves the engine empty; the service still starts
	// so a later rebuild can recover it.
	if err := engine.Init(ctx); err != nil {
		slog.Error("initial index build failed", "error", err)
	}

	if cfg.Kafka.Enabled {
		completeProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer completeProducer.Close()
		rebuildConsumer := consumer.New(kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.CorpusChanged,
			consumer.HandleMessage(engine, completeProducer),
		))
		go func() {
			if err := rebuildConsumer.Start(ctx); err != nil {
				slog.Error("rebuild consumer error", "error", err)
			}
		}()
		slog.Info("listening for corpus changes", "topic", cfg.Kafka.Topics.CorpusChanged)
	}

	exec := executor.New(engine, executor.Options{
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxResults:    cfg.Search.MaxResults,
		SnippetLength: cfg.Search.SnippetLength,
		Metrics:       m,
	})
	h := handler.New(handler.Deps{
		Executor:  exec,
		Engine:    engine,
		Cache:     queryCache,
		History:   historyStore,
		Collector: collector,
		Metrics:   m,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator, analyticsStore).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port); err != nil {
				slog.Error("metrics listener stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "state", engine.State().String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
