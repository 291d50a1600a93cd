package domain

import "strings"

// VectorVersion identifies one embedding schema generation. Vectors from
// different versions are never comparable: v2 encodes the subject only, v3
// encodes subject plus work plan. Dimensionality may differ across versions.
type VectorVersion int

const (
	// VersionSubject is the original sentence-encoder generation built from
	// the subject field alone.
	VersionSubject VectorVersion = 2
	// VersionSubjectWorkPlan is the enriched generation built from subject
	// plus work plan, weighted toward the subject.
	VersionSubjectWorkPlan VectorVersion = 3
)

func (v VectorVersion) String() string {
	switch v {
	case VersionSubject:
		return "v2"
	case VersionSubjectWorkPlan:
		return "v3"
	default:
		return "unknown"
	}
}

// ResolvedVector is the coalesced embedding for one record: exactly one
// version tagged with its values. Construct it through CoalesceVector so a
// caller can never mix columns from different versions.
type ResolvedVector struct {
	Version VectorVersion
	Values  []float32
}

// Dims returns the vector dimensionality.
func (r ResolvedVector) Dims() int { return len(r.Values) }

// CoalesceVector picks the best available version for a record: the newest
// non-empty vector wins, older versions are fallbacks. The second return is
// false when no version exists, meaning the record is unsearchable by
// similarity.
func CoalesceVector(v2, v3 []float32) (ResolvedVector, bool) {
	if len(v3) > 0 {
		return ResolvedVector{Version: VersionSubjectWorkPlan, Values: v3}, true
	}
	if len(v2) > 0 {
		return ResolvedVector{Version: VersionSubject, Values: v2}, true
	}
	return ResolvedVector{}, false
}

// embeddingTextBudget caps the combined text handed to the encoder. The
// subject is always kept whole; only the work plan is cut.
const embeddingTextBudget = 3000

// ComposeEmbeddingText builds the v3 source text from subject and work plan.
// Subject comes first (it carries more signal); when the combined text
// exceeds the budget the work plan is truncated deterministically.
func ComposeEmbeddingText(subject, workPlan string) string {
	subject = strings.TrimSpace(subject)
	workPlan = strings.TrimSpace(workPlan)

	if workPlan == "" {
		return subject
	}
	if subject == "" {
		if len(workPlan) > embeddingTextBudget {
			return workPlan[:embeddingTextBudget]
		}
		return workPlan
	}

	combined := subject + ". " + workPlan
	if len(combined) <= embeddingTextBudget {
		return combined
	}
	room := embeddingTextBudget - len(subject) - 2
	if room <= 0 {
		return subject
	}
	if room > len(workPlan) {
		room = len(workPlan)
	}
	return subject + ". " + workPlan[:room]
}
