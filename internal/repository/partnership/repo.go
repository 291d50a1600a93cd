// Package partnership is the Postgres repository for instrumentos de
// parceria rows.
package partnership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hub-aura/aurahub/internal/domain"
)

const columns = `id, numero_do_termo, ano_do_termo, cpf_cnpj, razao_social,
	objeto, plano_de_trabalho, data_da_assinatura, data_de_publicacao, vigencia, situacao`

// Repo reads and writes the instrumentos_parceria table.
type Repo struct {
	db *sqlx.DB
}

// New creates a partnership repository.
func New(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// Get returns one record by id.
func (r *Repo) Get(ctx context.Context, id int64) (domain.Partnership, error) {
	var p domain.Partnership
	query := fmt.Sprintf(`SELECT %s FROM instrumentos_parceria WHERE id = $1`, columns)
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Partnership{}, domain.ErrNotFound
		}
		return domain.Partnership{}, fmt.Errorf("get partnership %d: %w", id, err)
	}
	return p, nil
}

// List returns records ordered by id with pagination.
func (r *Repo) List(ctx context.Context, limit, offset int) ([]domain.Partnership, error) {
	items := []domain.Partnership{}
	query := fmt.Sprintf(`SELECT %s FROM instrumentos_parceria ORDER BY id LIMIT $1 OFFSET $2`, columns)
	if err := r.db.SelectContext(ctx, &items, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list partnerships: %w", err)
	}
	return items, nil
}

// GetByIDs hydrates full records for a page of ids. Missing ids are simply
// absent from the result; the caller decides how to treat them.
func (r *Repo) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Partnership, error) {
	if len(ids) == 0 {
		return map[int64]domain.Partnership{}, nil
	}

	items := []domain.Partnership{}
	query := fmt.Sprintf(`SELECT %s FROM instrumentos_parceria WHERE id = ANY($1)`, columns)
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get partnerships by ids: %w", err)
	}

	byID := make(map[int64]domain.Partnership, len(items))
	for _, p := range items {
		byID[p.ID] = p
	}
	return byID, nil
}

// SearchKeyword runs the accent-insensitive substring search over term
// number, legal name and subject. Returns the page and the total match count.
func (r *Repo) SearchKeyword(ctx context.Context, term string, limit, offset int) ([]domain.Partnership, int64, error) {
	pattern := "%" + strings.TrimSpace(term) + "%"
	where := `
		unaccent(lower(coalesce(numero_do_termo, ''))) ILIKE unaccent(lower($1)) OR
		unaccent(lower(coalesce(razao_social, ''))) ILIKE unaccent(lower($1)) OR
		unaccent(lower(coalesce(objeto, ''))) ILIKE unaccent(lower($1))`

	var total int64
	countQuery := `SELECT COUNT(*) FROM instrumentos_parceria WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, pattern); err != nil {
		return nil, 0, fmt.Errorf("count keyword matches: %w", err)
	}

	items := []domain.Partnership{}
	dataQuery := fmt.Sprintf(
		`SELECT %s FROM instrumentos_parceria WHERE %s ORDER BY id LIMIT $2 OFFSET $3`,
		columns, where)
	if err := r.db.SelectContext(ctx, &items, dataQuery, pattern, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("search keyword: %w", err)
	}

	return items, total, nil
}

// Create inserts a record inside the given transaction and returns it with
// the generated id.
func (r *Repo) Create(ctx context.Context, tx *sqlx.Tx, n domain.NewPartnership, status string) (domain.Partnership, error) {
	var p domain.Partnership
	query := fmt.Sprintf(`
		INSERT INTO instrumentos_parceria (razao_social, objeto, cpf_cnpj, ano_do_termo, situacao)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, columns)
	err := tx.GetContext(ctx, &p, query, n.LegalName, n.Subject, n.TaxID, n.TermYear, status)
	if err != nil {
		return domain.Partnership{}, fmt.Errorf("insert partnership: %w", err)
	}
	return p, nil
}

// BeginTx opens a transaction for multi-statement writes.
func (r *Repo) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// CountByYear returns record counts grouped by term year, newest first.
func (r *Repo) CountByYear(ctx context.Context) ([]domain.YearCount, error) {
	items := []domain.YearCount{}
	query := `
		SELECT ano_do_termo, COUNT(id) AS total
		FROM instrumentos_parceria
		WHERE ano_do_termo IS NOT NULL
		GROUP BY ano_do_termo
		ORDER BY ano_do_termo DESC`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("count by year: %w", err)
	}
	return items, nil
}

// CountByStatus returns record counts grouped by situation, largest first.
func (r *Repo) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	items := []domain.StatusCount{}
	query := `
		SELECT situacao, COUNT(*) AS quantidade
		FROM instrumentos_parceria
		GROUP BY situacao
		ORDER BY quantidade DESC`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	return items, nil
}
