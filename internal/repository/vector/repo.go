// Package vector is the Postgres repository for the documento_vetores table:
// one row per record, nullable FLOAT[] columns per embedding version, plus a
// native pgvector column for the index-assisted neighbors path.
package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/hub-aura/aurahub/internal/domain"
)

// Candidate is one row of the candidate set: the raw per-version columns plus
// enough joined record metadata for filtering, and an existence flag so the
// orchestrator can observe orphaned vectors instead of SQL dropping them.
type Candidate struct {
	RecordID     int64
	V2           []float32
	V3           []float32
	Year         *int
	RecordExists bool
}

// Neighbor is one hit of the record-to-record similarity query.
type Neighbor struct {
	RecordID int64
	Score    float64
}

// Repo reads and writes document vectors.
type Repo struct {
	db *sqlx.DB
}

// New creates a vector repository.
func New(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// Candidates returns one row per record holding a vector of any version. The
// LEFT JOIN keeps rows whose record is gone; version coalescing happens in
// domain.CoalesceVector so exactly one vector per record enters a query.
func (r *Repo) Candidates(ctx context.Context) ([]Candidate, error) {
	query := `
		SELECT dv.parceria_id, dv.objeto_vetor_v2, dv.objeto_vetor_v3,
		       p.ano_do_termo, (p.id IS NOT NULL) AS record_exists
		FROM documento_vetores dv
		LEFT JOIN instrumentos_parceria p ON p.id = dv.parceria_id
		WHERE dv.objeto_vetor_v2 IS NOT NULL OR dv.objeto_vetor_v3 IS NOT NULL
		ORDER BY dv.parceria_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var (
			c      Candidate
			v2, v3 pq.Float64Array
		)
		if err := rows.Scan(&c.RecordID, &v2, &v3, &c.Year, &c.RecordExists); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.V2 = toFloat32(v2)
		c.V3 = toFloat32(v3)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// Resolve returns the best available vector version for one record.
func (r *Repo) Resolve(ctx context.Context, recordID int64) (domain.ResolvedVector, error) {
	query := `
		SELECT objeto_vetor_v2, objeto_vetor_v3
		FROM documento_vetores
		WHERE parceria_id = $1`

	var v2, v3 pq.Float64Array
	if err := r.db.QueryRowContext(ctx, query, recordID).Scan(&v2, &v3); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ResolvedVector{}, domain.ErrVectorAbsent
		}
		return domain.ResolvedVector{}, fmt.Errorf("resolve vector for %d: %w", recordID, err)
	}

	resolved, ok := domain.CoalesceVector(toFloat32(v2), toFloat32(v3))
	if !ok {
		return domain.ResolvedVector{}, domain.ErrVectorAbsent
	}
	return resolved, nil
}

// Upsert writes a vector for one record+version pair, idempotently.
func (r *Repo) Upsert(ctx context.Context, recordID int64, version domain.VectorVersion, vec []float32) error {
	col, err := versionColumn(version)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO documento_vetores (parceria_id, %s)
		VALUES ($1, $2)
		ON CONFLICT (parceria_id) DO UPDATE SET %s = EXCLUDED.%s`, col, col, col)
	if _, err := r.db.ExecContext(ctx, query, recordID, pq.Array(toFloat64(vec))); err != nil {
		return fmt.Errorf("upsert %s vector for %d: %w", version, recordID, err)
	}
	return nil
}

// UpsertTx is Upsert inside an existing transaction.
func (r *Repo) UpsertTx(ctx context.Context, tx *sqlx.Tx, recordID int64, version domain.VectorVersion, vec []float32) error {
	col, err := versionColumn(version)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO documento_vetores (parceria_id, %s)
		VALUES ($1, $2)
		ON CONFLICT (parceria_id) DO UPDATE SET %s = EXCLUDED.%s`, col, col, col)
	if _, err := tx.ExecContext(ctx, query, recordID, pq.Array(toFloat64(vec))); err != nil {
		return fmt.Errorf("upsert %s vector for %d: %w", version, recordID, err)
	}
	return nil
}

// UpsertNative writes the pgvector column that backs the neighbors query.
// Kept in lockstep with the v3 column by the write paths.
func (r *Repo) UpsertNative(ctx context.Context, recordID int64, vec []float32) error {
	query := `
		INSERT INTO documento_vetores (parceria_id, objeto_vetor)
		VALUES ($1, $2)
		ON CONFLICT (parceria_id) DO UPDATE SET objeto_vetor = EXCLUDED.objeto_vetor`
	if _, err := r.db.ExecContext(ctx, query, recordID, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("upsert native vector for %d: %w", recordID, err)
	}
	return nil
}

// UpsertNativeTx is UpsertNative inside an existing transaction.
func (r *Repo) UpsertNativeTx(ctx context.Context, tx *sqlx.Tx, recordID int64, vec []float32) error {
	query := `
		INSERT INTO documento_vetores (parceria_id, objeto_vetor)
		VALUES ($1, $2)
		ON CONFLICT (parceria_id) DO UPDATE SET objeto_vetor = EXCLUDED.objeto_vetor`
	if _, err := tx.ExecContext(ctx, query, recordID, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("upsert native vector for %d: %w", recordID, err)
	}
	return nil
}

// Neighbors returns the closest stored records to the given one, using the
// pgvector cosine-distance operator over the native column. All operands come
// from the same column, so versions cannot mix here.
func (r *Repo) Neighbors(ctx context.Context, recordID int64, limit int) ([]Neighbor, error) {
	query := `
		WITH base AS (
			SELECT objeto_vetor FROM documento_vetores
			WHERE parceria_id = $1 AND objeto_vetor IS NOT NULL
		)
		SELECT dv.parceria_id,
		       1 - (dv.objeto_vetor <=> (SELECT objeto_vetor FROM base)) AS score
		FROM documento_vetores dv
		WHERE dv.parceria_id != $1 AND dv.objeto_vetor IS NOT NULL
		  AND EXISTS (SELECT 1 FROM base)
		ORDER BY dv.objeto_vetor <=> (SELECT objeto_vetor FROM base), dv.parceria_id
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, recordID, limit)
	if err != nil {
		return nil, fmt.Errorf("query neighbors of %d: %w", recordID, err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.RecordID, &n.Score); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return out, nil
}

// MissingV3 lists records that have no v3 vector yet, with the texts needed
// to build one. Limit 0 means no limit.
func (r *Repo) MissingV3(ctx context.Context, limit int) ([]ReembedRow, error) {
	query := `
		SELECT p.id, coalesce(p.objeto, '') AS objeto, coalesce(p.plano_de_trabalho, '') AS plano
		FROM instrumentos_parceria p
		LEFT JOIN documento_vetores dv ON dv.parceria_id = p.id
		WHERE dv.objeto_vetor_v3 IS NULL
		ORDER BY p.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows := []ReembedRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list records missing v3: %w", err)
	}
	return rows, nil
}

// AllRecords lists every record with its embedding source texts, for full
// re-embedding runs.
func (r *Repo) AllRecords(ctx context.Context) ([]ReembedRow, error) {
	query := `
		SELECT id, coalesce(objeto, '') AS objeto, coalesce(plano_de_trabalho, '') AS plano
		FROM instrumentos_parceria
		ORDER BY id`
	rows := []ReembedRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all records: %w", err)
	}
	return rows, nil
}

// ReembedRow is one record's embedding source texts.
type ReembedRow struct {
	ID       int64  `db:"id"`
	Subject  string `db:"objeto"`
	WorkPlan string `db:"plano"`
}

func versionColumn(version domain.VectorVersion) (string, error) {
	switch version {
	case domain.VersionSubject:
		return "objeto_vetor_v2", nil
	case domain.VersionSubjectWorkPlan:
		return "objeto_vetor_v3", nil
	default:
		return "", fmt.Errorf("unknown vector version %d", version)
	}
}

func toFloat32(v pq.Float64Array) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
