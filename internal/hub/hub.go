package hub

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrEmptyDocument indicates a document without an id, title or content.
var ErrEmptyDocument = errors.New("document needs an id, a title and content")

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

const (
	exactMatchWeight = 1.0
	fuzzyMatchWeight = 0.5
	// Words shorter than this never fuzzy-match; almost everything is
	// within two edits of a three-letter word.
	minFuzzyLength = 4
)

// Hit is one search result.
type Hit struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Score      float64  `json:"score"`
	Snippet    string   `json:"snippet"`
	Author     string   `json:"author"`
	Department string   `json:"department"`
}

// Hub holds the documents and their inverted keyword index. Safe for
// concurrent use.
type Hub struct {
	mu    sync.RWMutex
	docs  map[string]Document
	index map[string]map[string]struct{}

	fuzzyDistance int
}

// New creates an empty Hub. fuzzyDistance is the maximum edit distance for
// approximate keyword matches; 0 disables fuzzy matching.
func New(fuzzyDistance int) *Hub {
	return &Hub{
		docs:          make(map[string]Document),
		index:         make(map[string]map[string]struct{}),
		fuzzyDistance: fuzzyDistance,
	}
}

// Add indexes a document. Re-adding the same id replaces the stored copy and
// extends the index with any new terms.
func (h *Hub) Add(doc Document) error {
	if doc.ID == "" || doc.Title == "" || doc.Content == "" {
		return ErrEmptyDocument
	}
	doc.applyDefaults()

	terms := tokenize(doc.Content)
	terms = append(terms, tokenize(doc.Title)...)
	for _, t := range doc.Tags {
		terms = append(terms, strings.ToLower(t))
	}
	for _, c := range doc.KeyConcepts {
		terms = append(terms, strings.ToLower(c))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.docs[doc.ID] = doc
	for _, term := range terms {
		ids, ok := h.index[term]
		if !ok {
			ids = make(map[string]struct{})
			h.index[term] = ids
		}
		ids[doc.ID] = struct{}{}
	}
	return nil
}

// Get returns a stored document by id.
func (h *Hub) Get(id string) (Document, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	doc, ok := h.docs[id]
	return doc, ok
}

// Len returns the number of stored documents.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.docs)
}

// Search matches query words against the index. Exact term hits weigh more
// than fuzzy ones. Results come back sorted by score, ties by id, so equal
// inputs always produce equal output.
func (h *Hub) Search(query, category string, tags []string, maxResults int) []Hit {
	words := tokenize(query)
	if len(words) == 0 {
		return nil
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	scores := make(map[string]float64)
	for _, word := range words {
		if ids, ok := h.index[word]; ok {
			for id := range ids {
				scores[id] += exactMatchWeight
			}
		}
		if h.fuzzyDistance <= 0 || len(word) < minFuzzyLength {
			continue
		}
		for term, ids := range h.index {
			if term == word || !withinDistance(word, term, h.fuzzyDistance) {
				continue
			}
			for id := range ids {
				scores[id] += fuzzyMatchWeight
			}
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		doc := h.docs[id]
		if category != "" && doc.Category != category {
			continue
		}
		if len(tags) > 0 && !anyTag(doc.Tags, tags) {
			continue
		}
		hits = append(hits, Hit{
			ID:         doc.ID,
			Title:      doc.Title,
			Category:   doc.Category,
			Tags:       doc.Tags,
			Score:      score,
			Snippet:    snippet(doc.Content, words),
			Author:     doc.Author,
			Department: doc.Department,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func anyTag(docTags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range docTags {
			if strings.EqualFold(t, w) {
				return true
			}
		}
	}
	return false
}

// withinDistance reports whether the Levenshtein distance between a and b is
// at most max, bailing out early on length alone.
func withinDistance(a, b string, max int) bool {
	ra, rb := []rune(a), []rune(b)
	if diff := len(ra) - len(rb); diff > max || -diff > max {
		return false
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		best := curr[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
			if curr[j] < best {
				best = curr[j]
			}
		}
		if best > max {
			return false
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)] <= max
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

const snippetLength = 200

// snippet returns a window of content around the first query word hit, or
// the opening of the document when nothing matches.
func snippet(content string, words []string) string {
	lower := strings.ToLower(content)
	first := -1
	for _, w := range words {
		if pos := strings.Index(lower, w); pos != -1 && (first == -1 || pos < first) {
			first = pos
		}
	}

	if first == -1 {
		if len(content) <= snippetLength {
			return content
		}
		end := snippetLength
		for end > 0 && !utf8.RuneStart(content[end]) {
			end--
		}
		return content[:end] + "..."
	}

	start := first - snippetLength/2
	if start < 0 {
		start = 0
	}
	end := start + snippetLength
	if end > len(content) {
		end = len(content)
	}
	for start < len(content) && !utf8.RuneStart(content[start]) {
		start++
	}
	for end > start && end < len(content) && !utf8.RuneStart(content[end]) {
		end--
	}
	out := content[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(content) {
		out += "..."
	}
	return out
}
