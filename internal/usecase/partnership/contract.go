package partnership

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/hub-aura/aurahub/internal/domain"
)

// Repository is the storage contract for partnership records.
type Repository interface {
	Get(ctx context.Context, id int64) (domain.Partnership, error)
	List(ctx context.Context, limit, offset int) ([]domain.Partnership, error)
	SearchKeyword(ctx context.Context, term string, limit, offset int) ([]domain.Partnership, int64, error)
	Create(ctx context.Context, tx *sqlx.Tx, n domain.NewPartnership, status string) (domain.Partnership, error)
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	CountByYear(ctx context.Context) ([]domain.YearCount, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
}

// VectorWriter persists embeddings for newly created records. Both the
// versioned column and the native neighbor column are written, so a new
// record is immediately visible to the similares path.
type VectorWriter interface {
	UpsertTx(ctx context.Context, tx *sqlx.Tx, recordID int64, version domain.VectorVersion, vec []float32) error
	UpsertNativeTx(ctx context.Context, tx *sqlx.Tx, recordID int64, vec []float32) error
}

// Embedder vectorizes record text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
