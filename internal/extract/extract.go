// Package extract derives partnership record fields from the text of an
// uploaded instrument document. The heuristics target the layout of formal
// partnership terms: numbered clauses, CNPJ identifiers and uppercase
// organization names near them.
package extract

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

var (
	cnpjPattern    = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	yearPattern    = regexp.MustCompile(`(?i)Nº\s*\d+/(\d{4})`)
	subjectPattern = regexp.MustCompile(`(?is)CLÁUSULA\s*PRIMEIRA\s*[–—-]\s*DO\s*OBJETO\s*(.*?)\s*(?:CLÁUSULA\s*SEGUNDA|$)`)
	uppercaseOrg   = regexp.MustCompile(`[A-ZÀ-Ú]{2,}(?:\s+[A-ZÀ-Ú]{2,})+`)
	formalName     = regexp.MustCompile(`(?i)(?:instituto|universidade|fundação|fundacao|associação|associacao|empresa|companhia)(?:\s+[\p{L}][\p{L}./&-]*){1,8}`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// Generic terms and document headers that look like organization names but
// never are one.
var junkTerms = []string{
	"UNIÃO", "ESTADO", "MUNICÍPIO", "GOVERNO", "PREFEITURA",
	"TERMO", "ADITIVO", "ACORDO", "COOPERAÇÃO", "COOPERACAO",
	"PRORROGAÇÃO", "PRORROGACAO", "OBJETO",
}

var connectives = map[string]bool{"de": true, "do": true, "da": true, "dos": true, "das": true}

// Suggestion holds the fields guessed from a document, for the operator to
// review before saving. JSON names follow the record schema with a suffix
// marking them as suggestions.
type Suggestion struct {
	LegalName string `json:"razao_social_sugerida"`
	Subject   string `json:"objeto_sugerido"`
	CNPJ      string `json:"cnpj_sugerido"`
	Year      string `json:"ano_do_termo_sugerido"`
}

// Extractor derives record fields from document text.
type Extractor struct {
	houseCNPJ string
}

// NewExtractor creates an Extractor. houseCNPJ is the institution's own
// identifier, which appears in every instrument and must never be suggested
// as the counterpart.
func NewExtractor(houseCNPJ string) *Extractor {
	return &Extractor{houseCNPJ: houseCNPJ}
}

// Extract runs all field heuristics over the document text. Missing fields
// come back empty rather than failing the whole extraction.
func (e *Extractor) Extract(text string) Suggestion {
	clean := whitespace.ReplaceAllString(strings.ReplaceAll(text, "\n", " "), " ")

	return Suggestion{
		LegalName: e.extractLegalName(clean),
		Subject:   extractSubject(text),
		CNPJ:      e.extractCNPJ(clean),
		Year:      extractYear(clean),
	}
}

// extractCNPJ returns every counterpart CNPJ found, comma separated. The
// house CNPJ is dropped.
func (e *Extractor) extractCNPJ(text string) string {
	var out []string
	for _, cnpj := range cnpjPattern.FindAllString(text, -1) {
		if cnpj != e.houseCNPJ {
			out = append(out, cnpj)
		}
	}
	return strings.Join(out, ", ")
}

func extractYear(text string) string {
	if m := yearPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// extractSubject captures the body of the first clause. Documents without
// the standard clause structure fall back to the opening of the text.
func extractSubject(text string) string {
	if m := subjectPattern.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	runes := []rune(text)
	if len(runes) > 1000 {
		runes = runes[:1000]
	}
	return strings.TrimSpace(string(runes))
}

type candidate struct {
	name  string
	score float64
}

// extractLegalName looks for organization names in a window around each
// counterpart CNPJ and scores them by proximity, length and capitalization.
// Ties keep the earliest candidate, so results are deterministic.
func (e *Extractor) extractLegalName(text string) string {
	var best candidate
	for _, loc := range cnpjPattern.FindAllStringIndex(text, -1) {
		cnpj := text[loc[0]:loc[1]]
		if cnpj == e.houseCNPJ {
			continue
		}

		start := loc[0] - 500
		if start < 0 {
			start = 0
		}
		end := loc[1] + 200
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]

		for _, c := range findCandidates(window, start, loc[0]) {
			if c.score > best.score {
				best = c
			}
		}
	}
	return best.name
}

func findCandidates(window string, windowStart, cnpjPos int) []candidate {
	var out []candidate

	for _, loc := range uppercaseOrg.FindAllStringIndex(window, -1) {
		name := window[loc[0]:loc[1]]
		if isJunk(name) {
			continue
		}
		out = append(out, candidate{name: name, score: scoreCandidate(name, windowStart+loc[0], cnpjPos)})
	}

	for _, loc := range formalName.FindAllStringIndex(window, -1) {
		name := normalizeName(window[loc[0]:loc[1]])
		if isJunk(name) {
			continue
		}
		out = append(out, candidate{name: name, score: scoreCandidate(name, windowStart+loc[0], cnpjPos)})
	}

	return out
}

func scoreCandidate(name string, pos, cnpjPos int) float64 {
	distance := 1.0 / (1.0 + math.Abs(float64(pos-cnpjPos)))
	length := float64(len(strings.Fields(name))) / 10.0

	var upper, letters int
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	caps := 0.0
	if letters > 0 && float64(upper)/float64(letters) > 0.4 {
		caps = 0.2
	}

	return distance + length + caps
}

func isJunk(name string) bool {
	if len(strings.Fields(name)) < 2 {
		return true
	}
	upper := strings.ToUpper(name)
	for _, term := range junkTerms {
		if strings.Contains(upper, term) {
			return true
		}
	}
	return false
}

// normalizeName title-cases a name while keeping connectives lowercase.
func normalizeName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		lower := strings.ToLower(w)
		if connectives[lower] {
			words[i] = lower
			continue
		}
		runes := []rune(lower)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
