package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hub-aura/aurahub/internal/domain"
	"github.com/hub-aura/aurahub/internal/hub"
)

type stubEmbedder struct {
	healthErr error
}

func (stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, nil
}

func (s stubEmbedder) HealthCheck(context.Context) error { return s.healthErr }

// plainEmbedder does not implement domain.HealthChecker.
type plainEmbedder struct{}

func (plainEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, nil
}

func TestEmbeddingHealthChecker_PropagatesProviderError(t *testing.T) {
	provErr := errors.New("encoder unreachable")
	hc := newEmbeddingHealthChecker(stubEmbedder{healthErr: provErr})

	// An unreachable encoder must surface here so startup can abort instead
	// of discovering the failure on the first live query.
	if err := hc.HealthCheck(context.Background()); !errors.Is(err, provErr) {
		t.Fatalf("HealthCheck() = %v, want wrapped %v", err, provErr)
	}
}

func TestEmbeddingHealthChecker_Healthy(t *testing.T) {
	hc := newEmbeddingHealthChecker(stubEmbedder{})
	if err := hc.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() = %v, want nil", err)
	}
}

func TestEmbeddingHealthChecker_NoCheckSupport(t *testing.T) {
	hc := newEmbeddingHealthChecker(plainEmbedder{})
	if err := hc.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() = %v, want nil", err)
	}
}

func TestLoadHubDirectory(t *testing.T) {
	dir := t.TempDir()
	content := []byte("regras do edital de fomento cultural")
	if err := os.WriteFile(filepath.Join(dir, "edital.txt"), content, 0o600); err != nil {
		t.Fatal(err)
	}

	knowledge := hub.New(2)
	loadHubDirectory(knowledge, dir, zap.NewNop())

	if knowledge.Len() != 1 {
		t.Fatalf("hub has %d documents, want 1", knowledge.Len())
	}
	hits := knowledge.Search("fomento", "", nil, 10)
	if len(hits) != 1 {
		t.Errorf("search hits = %d, want 1", len(hits))
	}
}

func TestLoadHubDirectory_MissingDir(t *testing.T) {
	knowledge := hub.New(2)
	loadHubDirectory(knowledge, filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	if knowledge.Len() != 0 {
		t.Fatalf("hub has %d documents, want 0", knowledge.Len())
	}
}
