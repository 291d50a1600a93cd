package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/hub-aura/aurahub/internal/cache"
	"github.com/hub-aura/aurahub/internal/config"
	"github.com/hub-aura/aurahub/internal/domain"
	"github.com/hub-aura/aurahub/internal/extract"
	"github.com/hub-aura/aurahub/internal/hub"
	logpkg "github.com/hub-aura/aurahub/internal/logger"
	"github.com/hub-aura/aurahub/internal/metrics"
	"github.com/hub-aura/aurahub/internal/repository/embcache"
	partnershiprepo "github.com/hub-aura/aurahub/internal/repository/partnership"
	vectorrepo "github.com/hub-aura/aurahub/internal/repository/vector"
	"github.com/hub-aura/aurahub/internal/transport/httpapi"
	openaiEmb "github.com/hub-aura/aurahub/internal/transport/openai"
	healthuc "github.com/hub-aura/aurahub/internal/usecase/health"
	partnershipuc "github.com/hub-aura/aurahub/internal/usecase/partnership"
	searchuc "github.com/hub-aura/aurahub/internal/usecase/search"
	"github.com/hub-aura/aurahub/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New("aurahub", env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting aurahub API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	db, err := sqlx.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifeSec) * time.Second)

	pingCtx, cancelPing := context.WithTimeout(context.Background(),
		time.Duration(cfg.Database.PingTimeoutSec)*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Optional embedding cache. Absent addrs mean every query hits the
	// encoder directly.
	var kv *cache.Client
	if len(cfg.Cache.Addrs) > 0 {
		kv, err = cache.New(cache.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache client", zap.Error(err))
		}
		defer kv.Close()
		logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	metrics.Register()

	embedder := buildEmbedder(cfg, kv, logger)

	// A dead encoder must fail startup, not the first live query.
	embCtx, cancelEmb := context.WithTimeout(context.Background(),
		time.Duration(cfg.Embedding.HealthTimeoutSec)*time.Second)
	defer cancelEmb()
	if err := newEmbeddingHealthChecker(embedder).HealthCheck(embCtx); err != nil {
		logger.Fatal("Embedding provider not ready", zap.Error(err))
	}
	logger.Info("Embedding provider ready",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	recordRepo := partnershiprepo.New(db)
	vecRepo := vectorrepo.New(db)

	partnershipSvc := partnershipuc.New(recordRepo, vecRepo, embedder, logger).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	searchSvc := searchuc.New(vecRepo, recordRepo, embedder, logger)

	var cachePinger healthuc.CachePinger
	if kv != nil {
		cachePinger = kv
	}
	healthSvc := healthuc.New(&dbPinger{db: db}, cachePinger, newEmbeddingHealthChecker(embedder))

	knowledge := hub.New(cfg.Hub.FuzzyDistance)
	if cfg.Hub.IngestDir != "" {
		loadHubDirectory(knowledge, cfg.Hub.IngestDir, logger)
	}

	server := httpapi.NewServer(
		partnershipSvc,
		searchSvc,
		healthSvc,
		knowledge,
		extract.NewPDFReader(),
		extract.NewExtractor(cfg.Extract.HouseCNPJ),
		logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.HTTP.CORSOrigins),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the encoder chain: OpenAI-compatible provider,
// optionally wrapped by the Redis cache.
func buildEmbedder(cfg config.Config, kv *cache.Client, logger *zap.Logger) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	if kv == nil {
		return base
	}
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	return embcache.New(base, kv, ttl, metrics.EmbeddingCacheTotal, logger)
}

// loadHubDirectory seeds the knowledge hub from a directory of reference
// documents. Ingestion failures are logged, not fatal: the hub also accepts
// documents over the API.
func loadHubDirectory(knowledge *hub.Hub, dir string, logger *zap.Logger) {
	docs, err := hub.NewIngestor().Directory(dir)
	if err != nil {
		logger.Warn("Failed to ingest knowledge hub directory",
			zap.String("dir", dir), zap.Error(err))
		return
	}
	added := 0
	for _, doc := range docs {
		if err := knowledge.Add(doc); err != nil {
			logger.Warn("Skipping knowledge document",
				zap.String("source", doc.Source), zap.Error(err))
			continue
		}
		added++
	}
	logger.Info("Knowledge hub loaded",
		zap.String("dir", dir), zap.Int("documents", added))
}

// dbPinger adapts sqlx.DB to the health check contract.
type dbPinger struct {
	db *sqlx.DB
}

func (p *dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// embeddingHealthChecker exposes the provider health probe when the embedder
// chain supports one.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
