package hub

import (
	"math"
	"sort"
	"time"
)

// TermCount is a term with its occurrence count.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Temporal summarizes when documents were created.
type Temporal struct {
	Earliest string         `json:"earliest_document,omitempty"`
	Latest   string         `json:"latest_document,omitempty"`
	Monthly  map[string]int `json:"monthly_distribution,omitempty"`
}

// Coverage assesses how broadly the repository covers its subject matter.
type Coverage struct {
	UniqueCategories   int     `json:"unique_categories"`
	UniqueTags         int     `json:"unique_tags"`
	AverageConfidence  float64 `json:"average_confidence_score"`
	HighConfidenceDocs int     `json:"documents_with_high_confidence"`
	Score              float64 `json:"coverage_score"`
}

// Insights aggregates repository-wide statistics.
type Insights struct {
	TotalDocuments  int            `json:"total_documents"`
	Categories      map[string]int `json:"categories_distribution"`
	TopTags         []TermCount    `json:"top_tags"`
	TopConcepts     []TermCount    `json:"top_concepts"`
	Types           map[string]int `json:"document_types_distribution"`
	Temporal        Temporal       `json:"temporal_distribution"`
	Departments     map[string]int `json:"department_distribution"`
	Coverage        Coverage       `json:"knowledge_coverage"`
	Recommendations []string       `json:"recommendations"`
}

const (
	topTagCount     = 10
	topConceptCount = 15
)

// Insights computes aggregate statistics over the stored documents.
func (h *Hub) Insights() Insights {
	h.mu.RLock()
	docs := make([]Document, 0, len(h.docs))
	for _, d := range h.docs {
		docs = append(docs, d)
	}
	h.mu.RUnlock()

	out := Insights{
		TotalDocuments: len(docs),
		Categories:     map[string]int{},
		Types:          map[string]int{},
		Departments:    map[string]int{},
	}

	tagCounts := map[string]int{}
	conceptCounts := map[string]int{}
	monthly := map[string]int{}
	var earliest, latest time.Time
	var confidenceSum float64

	for _, d := range docs {
		out.Categories[d.Category]++
		out.Types[string(d.Type)]++
		if d.Department != "" {
			out.Departments[d.Department]++
		}
		for _, t := range d.Tags {
			tagCounts[t]++
		}
		for _, c := range d.KeyConcepts {
			conceptCounts[c]++
		}
		monthly[d.CreatedAt.Format("2006-01")]++
		if earliest.IsZero() || d.CreatedAt.Before(earliest) {
			earliest = d.CreatedAt
		}
		if d.CreatedAt.After(latest) {
			latest = d.CreatedAt
		}
		confidenceSum += d.Confidence
		if d.Confidence >= 0.7 {
			out.Coverage.HighConfidenceDocs++
		}
	}

	out.TopTags = topTerms(tagCounts, topTagCount)
	out.TopConcepts = topTerms(conceptCounts, topConceptCount)

	if len(docs) > 0 {
		out.Temporal = Temporal{
			Earliest: earliest.Format(time.RFC3339),
			Latest:   latest.Format(time.RFC3339),
			Monthly:  monthly,
		}
		out.Coverage.AverageConfidence = round2(confidenceSum / float64(len(docs)))
	}
	out.Coverage.UniqueCategories = len(out.Categories)
	out.Coverage.UniqueTags = len(tagCounts)
	out.Coverage.Score = coverageScore(docs)
	out.Recommendations = recommendations(docs, out.Categories)

	return out
}

// topTerms returns the n most frequent terms, ties broken alphabetically.
func topTerms(counts map[string]int, n int) []TermCount {
	out := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		out = append(out, TermCount{Term: term, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// coverageScore blends category diversity, tag and concept richness and
// average confidence into a single 0..1 figure.
func coverageScore(docs []Document) float64 {
	if len(docs) == 0 {
		return 0
	}

	categories := map[string]struct{}{}
	var tags, concepts int
	var confidence float64
	for _, d := range docs {
		categories[d.Category] = struct{}{}
		tags += len(d.Tags)
		concepts += len(d.KeyConcepts)
		confidence += d.Confidence
	}
	n := float64(len(docs))

	score := math.Min(float64(len(categories))/10, 0.3)
	score += math.Min(float64(tags)/n/10, 0.3)
	score += math.Min(float64(concepts)/n/10, 0.2)
	score += confidence / n * 0.2
	return round2(score)
}

func recommendations(docs []Document, categories map[string]int) []string {
	if len(docs) == 0 {
		return []string{"Adicione documentos ao repositório para começar a gerar insights."}
	}

	var out []string
	n := float64(len(docs))

	var lowConfidence, recent, tagTotal int
	cutoff := time.Now().AddDate(0, 0, -30)
	for _, d := range docs {
		if d.Confidence < 0.5 {
			lowConfidence++
		}
		if d.CreatedAt.After(cutoff) {
			recent++
		}
		tagTotal += len(d.Tags)
	}

	if float64(lowConfidence) > n*0.2 {
		out = append(out, "Revisar documentos com baixa confiabilidade para melhorar a qualidade do conhecimento.")
	}
	if len(categories) < 3 {
		out = append(out, "Expandir a cobertura de categorias para diversificar o conhecimento organizacional.")
	}
	if float64(recent) < n*0.1 {
		out = append(out, "Adicionar documentos recentes para manter o conhecimento atualizado.")
	}
	if float64(tagTotal)/n < 2 {
		out = append(out, "Aumentar o uso de tags para melhorar a descoberta e organização do conhecimento.")
	}

	if len(out) == 0 {
		out = append(out, "Repositório de conhecimento em bom estado. Continue adicionando e atualizando documentos.")
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
