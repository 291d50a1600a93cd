// Package search implements the semantic search orchestrator: query text in,
// ranked hydrated records out.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hub-aura/aurahub/internal/domain"
	"github.com/hub-aura/aurahub/internal/metrics"
	"github.com/hub-aura/aurahub/internal/similarity"
)

// Filters holds the non-semantic restrictions applied to the candidate set
// before pagination.
type Filters struct {
	Year *int
}

// Result is one page of ranked records plus the total size of the filtered,
// scored candidate set (independent of the pagination window).
type Result struct {
	TotalCount int64                      `json:"total_items"`
	Items      []domain.ScoredPartnership `json:"items"`
}

// SimilarResult pairs a base record with its stored nearest neighbors.
type SimilarResult struct {
	Base  domain.Partnership         `json:"parceria_base"`
	Items []domain.ScoredPartnership `json:"documentos_similares"`
}

// Service drives embedding, scoring, ranking and hydration for one search
// request. Stateless; every call is an independent request-scoped pipeline.
type Service struct {
	vectors VectorSource
	records RecordSource
	embed   Embedder
	logger  *zap.Logger
}

// New creates a search service.
func New(vectors VectorSource, records RecordSource, embed Embedder, logger *zap.Logger) *Service {
	return &Service{vectors: vectors, records: records, embed: embed, logger: logger}
}

// Search runs the semantic pipeline. Orphaned vectors (no record row) are
// dropped and logged, never surfaced as errors; every other failure aborts
// the whole request with no partial results.
func (s *Service) Search(ctx context.Context, query string, filters Filters, limit, offset int) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, domain.ErrEmptyQuery
	}
	if limit <= 0 || offset < 0 {
		return Result{}, fmt.Errorf("%w: limit must be positive and offset non-negative", domain.ErrInvalidFilter)
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("vectorize query: %w", err)
	}

	candidates, err := s.vectors.Candidates(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load candidates: %w", err)
	}
	metrics.SearchCandidatesTotal.Observe(float64(len(candidates)))

	scorer := similarity.NewScorer(embResult.Embedding)

	scored := make([]similarity.Candidate, 0, len(candidates))
	orphans := 0
	for _, c := range candidates {
		if !c.RecordExists {
			orphans++
			continue
		}
		if filters.Year != nil && (c.Year == nil || *c.Year != *filters.Year) {
			continue
		}

		resolved, ok := domain.CoalesceVector(c.V2, c.V3)
		if !ok {
			continue
		}

		score, defined, err := scorer.Score(resolved.Values)
		if err != nil {
			// Version skew between the stored set and the live encoder is an
			// invariant violation, never silently coerced.
			s.logger.Error("candidate dimension mismatch",
				zap.Int64("record_id", c.RecordID),
				zap.String("version", resolved.Version.String()),
				zap.Error(err),
			)
			return Result{}, err
		}
		scored = append(scored, similarity.Candidate{ID: c.RecordID, Score: score, Defined: defined})
	}

	if orphans > 0 {
		metrics.SearchOrphanedVectorsTotal.Add(float64(orphans))
		s.logger.Warn("dropped orphaned vectors", zap.Int("count", orphans))
	}

	similarity.Rank(scored)

	total := int64(len(scored))
	page := slicePage(scored, offset, limit)

	items, err := s.hydrate(ctx, page)
	if err != nil {
		return Result{}, err
	}

	return Result{TotalCount: total, Items: items}, nil
}

// Similar returns the stored records closest to one base record, hydrated.
func (s *Service) Similar(ctx context.Context, recordID int64, limit int) (SimilarResult, error) {
	if limit <= 0 {
		limit = 5
	}

	base, err := s.records.Get(ctx, recordID)
	if err != nil {
		return SimilarResult{}, fmt.Errorf("get base record %d: %w", recordID, err)
	}

	neighbors, err := s.vectors.Neighbors(ctx, recordID, limit)
	if err != nil {
		return SimilarResult{}, fmt.Errorf("query neighbors: %w", err)
	}

	page := make([]similarity.Candidate, len(neighbors))
	for i, n := range neighbors {
		page[i] = similarity.Candidate{ID: n.RecordID, Score: n.Score, Defined: true}
	}

	items, err := s.hydrate(ctx, page)
	if err != nil {
		return SimilarResult{}, err
	}

	return SimilarResult{Base: base, Items: items}, nil
}

// hydrate joins a ranked page of ids against the record table, preserving
// rank order. Ids that vanished between scoring and hydration are dropped and
// logged, not surfaced.
func (s *Service) hydrate(ctx context.Context, page []similarity.Candidate) ([]domain.ScoredPartnership, error) {
	ids := make([]int64, len(page))
	for i, c := range page {
		ids[i] = c.ID
	}

	records, err := s.records.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate records: %w", err)
	}

	items := make([]domain.ScoredPartnership, 0, len(page))
	for _, c := range page {
		record, ok := records[c.ID]
		if !ok {
			s.logger.Warn("record vanished during hydration", zap.Int64("record_id", c.ID))
			continue
		}
		item := domain.ScoredPartnership{Partnership: record}
		if c.Defined {
			score := c.Score
			item.Score = &score
		}
		items = append(items, item)
	}
	return items, nil
}

func slicePage(scored []similarity.Candidate, offset, limit int) []similarity.Candidate {
	if offset >= len(scored) {
		return nil
	}
	end := offset + limit
	if end > len(scored) {
		end = len(scored)
	}
	return scored[offset:end]
}
