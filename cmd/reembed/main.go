// Command reembed backfills subject + work plan embeddings for partnership
// records, writing both the versioned column and the native neighbor vector.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/panjf2000/ants/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hub-aura/aurahub/internal/config"
	"github.com/hub-aura/aurahub/internal/domain"
	logpkg "github.com/hub-aura/aurahub/internal/logger"
	"github.com/hub-aura/aurahub/internal/metrics"
	vectorrepo "github.com/hub-aura/aurahub/internal/repository/vector"
	openaiEmb "github.com/hub-aura/aurahub/internal/transport/openai"
)

func main() {
	app := &cli.App{
		Name:  "reembed",
		Usage: "Backfill subject + work plan embeddings for partnership records",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Re-embed every record, not only the ones missing a vector",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of concurrent embedding workers",
				Value:   4,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records to process (0 = no limit)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New("reembed", env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := sqlx.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.PingTimeoutSec)*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	metrics.Register()

	// The job embeds each record text once, so the cache would never hit;
	// the encoder is called directly.
	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	repo := vectorrepo.New(db)

	var rows []vectorrepo.ReembedRow
	if c.Bool("all") {
		rows, err = repo.AllRecords(ctx)
	} else {
		rows, err = repo.MissingV3(ctx, c.Int("limit"))
	}
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if limit := c.Int("limit"); limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	logger.Info("Re-embedding records",
		zap.Int("count", len(rows)),
		zap.Bool("all", c.Bool("all")),
		zap.Int("workers", c.Int("workers")),
	)

	pool, err := ants.NewPool(c.Int("workers"))
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var done, skipped, failed atomic.Int64
	var wg sync.WaitGroup
	for _, row := range rows {
		row := row
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			switch processRecord(ctx, repo, embedder, row, logger) {
			case outcomeDone:
				done.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			case outcomeFailed:
				failed.Add(1)
			}
		}); err != nil {
			wg.Done()
			failed.Add(1)
			logger.Error("submit to pool", zap.Int64("record_id", row.ID), zap.Error(err))
		}
	}
	wg.Wait()

	logger.Info("Re-embedding finished",
		zap.Int64("done", done.Load()),
		zap.Int64("skipped", skipped.Load()),
		zap.Int64("failed", failed.Load()),
	)
	if failed.Load() > 0 {
		return fmt.Errorf("%d records failed", failed.Load())
	}
	return nil
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeSkipped
	outcomeFailed
)

// processRecord embeds one record and upserts both vector columns. Failures
// are logged and reported, never fatal to the run.
func processRecord(
	ctx context.Context,
	repo *vectorrepo.Repo,
	embedder *openaiEmb.Embedder,
	row vectorrepo.ReembedRow,
	logger *zap.Logger,
) outcome {
	text := domain.ComposeEmbeddingText(row.Subject, row.WorkPlan)
	if text == "" {
		logger.Warn("record has no embeddable text", zap.Int64("record_id", row.ID))
		return outcomeSkipped
	}

	result, err := embedder.Embed(ctx, text)
	if err != nil {
		logger.Error("embed record", zap.Int64("record_id", row.ID), zap.Error(err))
		return outcomeFailed
	}

	if err := repo.Upsert(ctx, row.ID, domain.VersionSubjectWorkPlan, result.Embedding); err != nil {
		logger.Error("upsert vector", zap.Int64("record_id", row.ID), zap.Error(err))
		return outcomeFailed
	}
	if err := repo.UpsertNative(ctx, row.ID, result.Embedding); err != nil {
		logger.Error("upsert native vector", zap.Int64("record_id", row.ID), zap.Error(err))
		return outcomeFailed
	}
	return outcomeDone
}
