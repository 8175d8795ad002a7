package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/config"
	"github.com/kailas-cloud/ragsearch/internal/corpus"
	dbRedis "github.com/kailas-cloud/ragsearch/internal/db/redis"
	"github.com/kailas-cloud/ragsearch/internal/domain"
	logpkg "github.com/kailas-cloud/ragsearch/internal/logger"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
	"github.com/kailas-cloud/ragsearch/internal/provider"
	corpusrepo "github.com/kailas-cloud/ragsearch/internal/repository/corpus"
	"github.com/kailas-cloud/ragsearch/internal/repository/corpusfile"
	chiTransport "github.com/kailas-cloud/ragsearch/internal/transport/chi"
	embeddinguc "github.com/kailas-cloud/ragsearch/internal/usecase/embedding"
	"github.com/kailas-cloud/ragsearch/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/ragsearch/internal/usecase/health"
	"github.com/kailas-cloud/ragsearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("corpus_source", cfg.Corpus.Source),
	)

	ctx := context.Background()

	// Redis is optional: it backs the embedding cache and the corpus repository.
	var store *dbRedis.Store
	var kv provider.KVStore
	var dbPinger healthuc.DBPinger
	if cfg.Database.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
		kv = store
		dbPinger = store
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	base, err := provider.New(cfg.Embedding, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding provider", zap.Error(err))
	}
	loader := embeddinguc.NewLoader(
		func(context.Context) (domain.Embedder, error) { return base, nil },
		func(b domain.Embedder) domain.Embedder {
			emb, err := provider.Decorate(b, cfg.Embedding, kv, cfg.Database.KeyPrefix, logger)
			if err != nil {
				logger.Error("Failed to decorate embedder, using bare provider", zap.Error(err))
				return b
			}
			return emb
		},
		logger,
	)

	source, sink := buildCorpus(cfg, store, logger)
	opts := []engine.Option{
		engine.WithSearchTimeout(time.Duration(cfg.Search.TimeoutMs) * time.Millisecond),
		engine.WithBackfill(),
	}
	if sink != nil {
		opts = append(opts, engine.WithSink(sink))
	}
	eng := engine.New(loader, source, logger, opts...)

	// Eager init; on failure the engine retries lazily on the first request.
	if err := eng.Initialize(ctx); err != nil {
		logger.Warn("Engine not ready at startup, will retry on first request", zap.Error(err))
	}

	var embChecker healthuc.EmbeddingChecker
	if hc, ok := base.(domain.HealthChecker); ok {
		embChecker = hc
	}
	health := healthuc.New(eng, dbPinger, embChecker)

	server := chiTransport.NewServer(eng, health, logger)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildCorpus selects the corpus source and, when persistence is enabled, the Redis sink.
func buildCorpus(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) (corpus.Source, corpus.Sink) {
	var repo *corpusrepo.Repo
	if store != nil {
		repo = corpusrepo.New(store, cfg.Database.KeyPrefix, logger)
	}

	var source corpus.Source
	switch cfg.Corpus.Source {
	case config.SourceRedis:
		source = repo
	case config.SourceFile:
		source = corpusfile.New(cfg.Corpus.Path, logger)
	default:
		source = corpus.EmptySource{}
	}

	if cfg.Corpus.Persist && repo != nil {
		return source, repo
	}
	return source, nil
}
