// Package hub is an in-memory knowledge repository kept separate from the
// partnership records: free-form institutional documents with a keyword
// index, fuzzy lookup and aggregate insights.
package hub

import "time"

// DocumentType classifies a knowledge document.
type DocumentType string

const (
	TypePolicy     DocumentType = "policy"
	TypeProcedure  DocumentType = "procedure"
	TypeReport     DocumentType = "report"
	TypeRegulation DocumentType = "regulation"
	TypeGuideline  DocumentType = "guideline"
	TypeAnalysis   DocumentType = "analysis"
	TypeOther      DocumentType = "other"
)

// Document is one entry in the knowledge repository.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`

	Type     DocumentType `json:"document_type"`
	Category string       `json:"category"`
	Tags     []string     `json:"tags"`

	Source     string    `json:"source"`
	Author     string    `json:"author"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`

	KeyConcepts []string `json:"key_concepts"`
	Confidence  float64  `json:"confidence_score"`
}

func (d *Document) applyDefaults() {
	if d.Type == "" {
		d.Type = TypeOther
	}
	if d.Category == "" {
		d.Category = "general"
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
}
