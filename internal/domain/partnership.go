package domain

import (
	"strings"
	"time"
)

// Partnership is one instrumento de parceria row. JSON field names stay in
// Portuguese for compatibility with the existing frontend.
type Partnership struct {
	ID              int64      `db:"id" json:"id"`
	TermNumber      *string    `db:"numero_do_termo" json:"numero_do_termo"`
	TermYear        *int       `db:"ano_do_termo" json:"ano_do_termo"`
	TaxID           *string    `db:"cpf_cnpj" json:"cpf_cnpj"`
	LegalName       *string    `db:"razao_social" json:"razao_social"`
	Subject         *string    `db:"objeto" json:"objeto"`
	WorkPlan        *string    `db:"plano_de_trabalho" json:"plano_de_trabalho"`
	SignatureDate   *time.Time `db:"data_da_assinatura" json:"data_da_assinatura"`
	PublicationDate *time.Time `db:"data_de_publicacao" json:"data_de_publicacao"`
	ValidUntil      *time.Time `db:"vigencia" json:"vigencia"`
	Status          *string    `db:"situacao" json:"situacao"`
}

// SubjectText returns the subject free text, empty when absent.
func (p Partnership) SubjectText() string {
	if p.Subject == nil {
		return ""
	}
	return strings.TrimSpace(*p.Subject)
}

// WorkPlanText returns the work plan free text, empty when absent.
func (p Partnership) WorkPlanText() string {
	if p.WorkPlan == nil {
		return ""
	}
	return strings.TrimSpace(*p.WorkPlan)
}

// NewPartnership holds the fields accepted on manual creation.
type NewPartnership struct {
	LegalName string
	Subject   string
	TaxID     *string
	TermYear  *int
}

// Validate checks the mandatory creation fields.
func (n NewPartnership) Validate() error {
	if strings.TrimSpace(n.LegalName) == "" || strings.TrimSpace(n.Subject) == "" {
		return ErrInvalidPartnership
	}
	return nil
}

// ScoredPartnership is one semantic search hit: a hydrated record plus its
// cosine similarity against the query. Score is nil when the similarity was
// incomputable (zero-norm embedding); such hits always rank last. Ephemeral,
// never persisted.
type ScoredPartnership struct {
	Partnership
	Score *float64 `json:"score"`
}

// YearCount is one row of the per-year statistics.
type YearCount struct {
	Year  int   `db:"ano_do_termo" json:"ano_do_termo"`
	Total int64 `db:"total" json:"total"`
}

// StatusCount is one row of the per-situation statistics.
type StatusCount struct {
	Status *string `db:"situacao" json:"situacao"`
	Count  int64   `db:"quantidade" json:"quantidade"`
}
