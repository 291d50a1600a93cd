package search

import (
	"context"

	"github.com/hub-aura/aurahub/internal/domain"
	vectorrepo "github.com/hub-aura/aurahub/internal/repository/vector"
)

// VectorSource streams the candidate set and resolves single records.
type VectorSource interface {
	Candidates(ctx context.Context) ([]vectorrepo.Candidate, error)
	Neighbors(ctx context.Context, recordID int64, limit int) ([]vectorrepo.Neighbor, error)
}

// RecordSource hydrates full records for a page of ids.
type RecordSource interface {
	Get(ctx context.Context, id int64) (domain.Partnership, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Partnership, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
