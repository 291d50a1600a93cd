// Package partnership implements CRUD, keyword search and statistics over
// partnership instrument records.
package partnership

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hub-aura/aurahub/internal/domain"
)

// createdStatus marks records entered through the assisted creation flow.
const createdStatus = "Cadastrado via IA"

// SearchResult is one page of keyword search hits plus the total match count.
type SearchResult struct {
	TotalCount int64                `json:"total_items"`
	Items      []domain.Partnership `json:"items"`
}

// Service handles the record lifecycle outside of semantic search.
type Service struct {
	repo     Repository
	vectors  VectorWriter
	embed    Embedder
	logger   *zap.Logger
	pageSize int
	maxPage  int
}

// New creates a partnership service.
func New(repo Repository, vectors VectorWriter, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		vectors:  vectors,
		embed:    embed,
		logger:   logger,
		pageSize: 10,
		maxPage:  100,
	}
}

// WithPagination overrides the default and maximum page sizes.
func (s *Service) WithPagination(defaultSize, maxSize int) *Service {
	s.pageSize = defaultSize
	s.maxPage = maxSize
	return s
}

// ClampPage normalizes limit/offset from the transport layer.
func (s *Service) ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > s.maxPage {
		limit = s.maxPage
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Partnership, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of records ordered by id.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Partnership, error) {
	limit, offset = s.ClampPage(limit, offset)
	return s.repo.List(ctx, limit, offset)
}

// SearchKeyword runs the accent-insensitive substring search.
func (s *Service) SearchKeyword(ctx context.Context, term string, limit, offset int) (SearchResult, error) {
	if strings.TrimSpace(term) == "" {
		return SearchResult{}, domain.ErrEmptyQuery
	}
	limit, offset = s.ClampPage(limit, offset)

	items, total, err := s.repo.SearchKeyword(ctx, term, limit, offset)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{TotalCount: total, Items: items}, nil
}

// Create inserts a record and stores its embedding, both the versioned
// column and the native neighbor column, in the same transaction, so a
// searchable record never exists without its vectors.
func (s *Service) Create(ctx context.Context, n domain.NewPartnership) (domain.Partnership, error) {
	if err := n.Validate(); err != nil {
		return domain.Partnership{}, err
	}

	// Embed before opening the transaction: the provider round-trip is the
	// slow part and must not hold a connection.
	text := domain.ComposeEmbeddingText(n.Subject, "")
	embResult, err := s.embed.Embed(ctx, text)
	if err != nil {
		return domain.Partnership{}, fmt.Errorf("embed new record: %w", err)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return domain.Partnership{}, err
	}
	defer func() { _ = tx.Rollback() }()

	created, err := s.repo.Create(ctx, tx, n, createdStatus)
	if err != nil {
		return domain.Partnership{}, err
	}

	if err := s.vectors.UpsertTx(ctx, tx, created.ID, domain.VersionSubjectWorkPlan, embResult.Embedding); err != nil {
		return domain.Partnership{}, err
	}
	if err := s.vectors.UpsertNativeTx(ctx, tx, created.ID, embResult.Embedding); err != nil {
		return domain.Partnership{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Partnership{}, fmt.Errorf("commit create: %w", err)
	}

	s.logger.Info("partnership created",
		zap.Int64("id", created.ID),
		zap.Int("embedding_dims", len(embResult.Embedding)),
	)
	return created, nil
}

// StatsByYear returns record counts grouped by term year.
func (s *Service) StatsByYear(ctx context.Context) ([]domain.YearCount, error) {
	return s.repo.CountByYear(ctx)
}

// StatsByStatus returns record counts grouped by situation.
func (s *Service) StatsByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	return s.repo.CountByStatus(ctx)
}
