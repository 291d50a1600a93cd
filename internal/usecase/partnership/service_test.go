package partnership

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/hub-aura/aurahub/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	records    map[int64]domain.Partnership
	listed     []domain.Partnership
	searchHits []domain.Partnership
	searchN    int64
	lastLimit  int
	lastOffset int
	years      []domain.YearCount
	statuses   []domain.StatusCount
	created    domain.Partnership
	tx         *sqlx.Tx
	err        error
}

func (m *mockRepo) Get(_ context.Context, id int64) (domain.Partnership, error) {
	if m.err != nil {
		return domain.Partnership{}, m.err
	}
	p, ok := m.records[id]
	if !ok {
		return domain.Partnership{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]domain.Partnership, error) {
	m.lastLimit, m.lastOffset = limit, offset
	return m.listed, m.err
}

func (m *mockRepo) SearchKeyword(_ context.Context, _ string, limit, offset int) ([]domain.Partnership, int64, error) {
	m.lastLimit, m.lastOffset = limit, offset
	return m.searchHits, m.searchN, m.err
}

func (m *mockRepo) Create(_ context.Context, _ *sqlx.Tx, _ domain.NewPartnership, _ string) (domain.Partnership, error) {
	return m.created, m.err
}

func (m *mockRepo) BeginTx(_ context.Context) (*sqlx.Tx, error) {
	if m.tx == nil {
		return nil, errors.New("no transaction configured")
	}
	return m.tx, nil
}

func (m *mockRepo) CountByYear(_ context.Context) ([]domain.YearCount, error) {
	return m.years, m.err
}

func (m *mockRepo) CountByStatus(_ context.Context) ([]domain.StatusCount, error) {
	return m.statuses, m.err
}

type mockVectorWriter struct {
	versioned []domain.VectorVersion
	nativeIDs []int64
	err       error
}

func (m *mockVectorWriter) UpsertTx(_ context.Context, _ *sqlx.Tx, _ int64, version domain.VectorVersion, _ []float32) error {
	m.versioned = append(m.versioned, version)
	return m.err
}

func (m *mockVectorWriter) UpsertNativeTx(_ context.Context, _ *sqlx.Tx, recordID int64, _ []float32) error {
	m.nativeIDs = append(m.nativeIDs, recordID)
	return m.err
}

type mockEmbedder struct {
	called bool
}

func (m *mockEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	m.called = true
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

// --- Tests ---

func TestSearchKeyword_BlankTerm(t *testing.T) {
	svc := New(&mockRepo{}, &mockVectorWriter{}, &mockEmbedder{}, zap.NewNop())

	_, err := svc.SearchKeyword(context.Background(), "   ", 10, 0)
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("error = %v, want ErrEmptyQuery", err)
	}
}

func TestSearchKeyword_ReturnsTotal(t *testing.T) {
	repo := &mockRepo{
		searchHits: []domain.Partnership{{ID: 1}, {ID: 2}},
		searchN:    42,
	}
	svc := New(repo, &mockVectorWriter{}, &mockEmbedder{}, zap.NewNop())

	res, err := svc.SearchKeyword(context.Background(), "educação", 2, 0)
	if err != nil {
		t.Fatalf("SearchKeyword() error = %v", err)
	}
	if res.TotalCount != 42 {
		t.Errorf("TotalCount = %d, want 42", res.TotalCount)
	}
	if len(res.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(res.Items))
	}
}

func TestClampPage(t *testing.T) {
	svc := New(&mockRepo{}, &mockVectorWriter{}, &mockEmbedder{}, zap.NewNop()).
		WithPagination(10, 100)

	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 10, 0},
		{-5, -3, 10, 0},
		{50, 20, 50, 20},
		{500, 0, 100, 0},
	}
	for _, tt := range tests {
		gotLimit, gotOffset := svc.ClampPage(tt.limit, tt.offset)
		if gotLimit != tt.wantLimit || gotOffset != tt.wantOffset {
			t.Errorf("ClampPage(%d, %d) = (%d, %d), want (%d, %d)",
				tt.limit, tt.offset, gotLimit, gotOffset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	embed := &mockEmbedder{}
	svc := New(&mockRepo{}, &mockVectorWriter{}, embed, zap.NewNop())

	_, err := svc.Create(context.Background(), domain.NewPartnership{LegalName: "", Subject: "x"})
	if !errors.Is(err, domain.ErrInvalidPartnership) {
		t.Fatalf("error = %v, want ErrInvalidPartnership", err)
	}
	if embed.called {
		t.Error("invalid input must not reach the embedder")
	}
}

func TestCreate_WritesBothVectorColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := sqlxDB.Beginx()
	if err != nil {
		t.Fatal(err)
	}

	repo := &mockRepo{tx: tx, created: domain.Partnership{ID: 7}}
	vectors := &mockVectorWriter{}
	svc := New(repo, vectors, &mockEmbedder{}, zap.NewNop())

	created, err := svc.Create(context.Background(), domain.NewPartnership{
		LegalName: "Instituto Cultural Esperança",
		Subject:   "oficinas de música para jovens",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != 7 {
		t.Errorf("created.ID = %d, want 7", created.ID)
	}

	// A new record must be searchable both by the app-level scorer and the
	// native neighbors query as soon as the transaction commits.
	if len(vectors.versioned) != 1 || vectors.versioned[0] != domain.VersionSubjectWorkPlan {
		t.Errorf("versioned upserts = %v, want one %s write",
			vectors.versioned, domain.VersionSubjectWorkPlan)
	}
	if len(vectors.nativeIDs) != 1 || vectors.nativeIDs[0] != 7 {
		t.Errorf("native upserts = %v, want [7]", vectors.nativeIDs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("transaction expectations: %v", err)
	}
}

func TestList_UsesDefaults(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockVectorWriter{}, &mockEmbedder{}, zap.NewNop()).WithPagination(25, 100)

	if _, err := svc.List(context.Background(), 0, -1); err != nil {
		t.Fatal(err)
	}
	if repo.lastLimit != 25 || repo.lastOffset != 0 {
		t.Errorf("repo called with (%d, %d), want (25, 0)", repo.lastLimit, repo.lastOffset)
	}
}
