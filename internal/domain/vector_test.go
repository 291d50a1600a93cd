package domain

import (
	"strings"
	"testing"
)

func TestCoalesceVector(t *testing.T) {
	v2 := []float32{1, 2}
	v3 := []float32{3, 4, 5}

	tests := []struct {
		name        string
		v2, v3      []float32
		wantOK      bool
		wantVersion VectorVersion
		wantDims    int
	}{
		{"v3 wins over v2", v2, v3, true, VersionSubjectWorkPlan, 3},
		{"v2 fallback", v2, nil, true, VersionSubject, 2},
		{"only v3", nil, v3, true, VersionSubjectWorkPlan, 3},
		{"nothing stored", nil, nil, false, 0, 0},
		{"empty slices count as absent", []float32{}, []float32{}, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, ok := CoalesceVector(tt.v2, tt.v3)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if resolved.Version != tt.wantVersion {
				t.Errorf("Version = %v, want %v", resolved.Version, tt.wantVersion)
			}
			if resolved.Dims() != tt.wantDims {
				t.Errorf("Dims() = %d, want %d", resolved.Dims(), tt.wantDims)
			}
		})
	}
}

func TestComposeEmbeddingText(t *testing.T) {
	if got := ComposeEmbeddingText("subject", ""); got != "subject" {
		t.Errorf("subject only: got %q", got)
	}
	if got := ComposeEmbeddingText("", "plan"); got != "plan" {
		t.Errorf("plan only: got %q", got)
	}
	if got := ComposeEmbeddingText("  subject  ", " plan "); got != "subject. plan" {
		t.Errorf("combined: got %q", got)
	}
}

func TestComposeEmbeddingText_TruncatesWorkPlanOnly(t *testing.T) {
	subject := strings.Repeat("s", 1000)
	plan := strings.Repeat("p", 5000)

	got := ComposeEmbeddingText(subject, plan)
	if len(got) > embeddingTextBudget {
		t.Fatalf("len = %d, want <= %d", len(got), embeddingTextBudget)
	}
	if !strings.HasPrefix(got, subject+". ") {
		t.Error("subject must be kept whole")
	}

	// Deterministic: same input, same output.
	if again := ComposeEmbeddingText(subject, plan); again != got {
		t.Error("truncation is not deterministic")
	}
}

func TestComposeEmbeddingText_SubjectExceedsBudget(t *testing.T) {
	subject := strings.Repeat("s", embeddingTextBudget+100)
	got := ComposeEmbeddingText(subject, "plan")
	if got != subject {
		t.Error("over-budget subject must still be kept whole, plan dropped")
	}
}
