package partnership

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/hub-aura/aurahub/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func recordColumns() []string {
	return []string{
		"id", "numero_do_termo", "ano_do_termo", "cpf_cnpj", "razao_social",
		"objeto", "plano_de_trabalho", "data_da_assinatura", "data_de_publicacao",
		"vigencia", "situacao",
	}
}

func TestGet_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)

	mock.ExpectQuery("SELECT (.+) FROM instrumentos_parceria WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(recordColumns()))

	_, err := repo.Get(context.Background(), 7)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)

	rows := sqlmock.NewRows(recordColumns()).
		AddRow(3, "012/2024", 2024, "12.345.678/0001-90", "Instituto Aurora",
			"Cooperação técnica em educação", nil, nil, nil, nil, "Vigente")
	mock.ExpectQuery("SELECT (.+) FROM instrumentos_parceria WHERE id").
		WithArgs(int64(3)).
		WillReturnRows(rows)

	p, err := repo.Get(context.Background(), 3)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.ID != 3 || p.LegalName == nil || *p.LegalName != "Instituto Aurora" {
		t.Errorf("unexpected record: %+v", p)
	}
	if p.WorkPlan != nil {
		t.Errorf("WorkPlan = %v, want nil", p.WorkPlan)
	}
}

func TestSearchKeyword_CountsAndPages(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM instrumentos_parceria`).
		WithArgs("%inteligencia%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	rows := sqlmock.NewRows(recordColumns()).
		AddRow(1, nil, nil, nil, "Fundação Lux", "Inteligência artificial aplicada",
			nil, nil, nil, nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM instrumentos_parceria WHERE (.+) ORDER BY id LIMIT").
		WithArgs("%inteligencia%", 10, 0).
		WillReturnRows(rows)

	items, total, err := repo.SearchKeyword(context.Background(), "inteligencia", 10, 0)
	if err != nil {
		t.Fatalf("SearchKeyword() error = %v", err)
	}
	if total != 17 {
		t.Errorf("total = %d, want 17", total)
	}
	if len(items) != 1 || items[0].ID != 1 {
		t.Errorf("items = %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreate_InsideTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)

	mock.ExpectBegin()
	rows := sqlmock.NewRows(recordColumns()).
		AddRow(10, nil, 2025, "11.222.333/0001-44", "Instituto Novo",
			"Objeto de teste", nil, nil, nil, nil, "Cadastrado via IA")
	mock.ExpectQuery("INSERT INTO instrumentos_parceria").
		WithArgs("Instituto Novo", "Objeto de teste", "11.222.333/0001-44", 2025, "Cadastrado via IA").
		WillReturnRows(rows)
	mock.ExpectCommit()

	tx, err := repo.BeginTx(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	cnpj := "11.222.333/0001-44"
	year := 2025
	created, err := repo.Create(context.Background(), tx, domain.NewPartnership{
		LegalName: "Instituto Novo",
		Subject:   "Objeto de teste",
		TaxID:     &cnpj,
		TermYear:  &year,
	}, "Cadastrado via IA")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != 10 {
		t.Errorf("ID = %d, want 10", created.ID)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCountByYear(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)

	mock.ExpectQuery("SELECT ano_do_termo, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"ano_do_termo", "total"}).
			AddRow(2025, 12).
			AddRow(2024, 30))

	stats, err := repo.CountByYear(context.Background())
	if err != nil {
		t.Fatalf("CountByYear() error = %v", err)
	}
	if len(stats) != 2 || stats[0].Year != 2025 || stats[0].Total != 12 {
		t.Errorf("stats = %+v", stats)
	}
}
