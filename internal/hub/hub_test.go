package hub

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc(id, title, content string) Document {
	return Document{ID: id, Title: title, Content: content}
}

func TestAdd_RejectsEmptyDocument(t *testing.T) {
	h := New(2)

	assert.ErrorIs(t, h.Add(Document{Title: "t", Content: "c"}), ErrEmptyDocument)
	assert.ErrorIs(t, h.Add(Document{ID: "1", Content: "c"}), ErrEmptyDocument)
	assert.ErrorIs(t, h.Add(Document{ID: "1", Title: "t"}), ErrEmptyDocument)
}

func TestAdd_AppliesDefaults(t *testing.T) {
	h := New(2)
	require.NoError(t, h.Add(testDoc("1", "Manual", "conteúdo")))

	doc, ok := h.Get("1")
	require.True(t, ok)
	assert.Equal(t, TypeOther, doc.Type)
	assert.Equal(t, "general", doc.Category)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestSearch_ExactMatch(t *testing.T) {
	h := New(0)
	require.NoError(t, h.Add(testDoc("1", "Política de Fomento", "regras para fomento cultural")))
	require.NoError(t, h.Add(testDoc("2", "Relatório Anual", "resumo das atividades do ano")))

	hits := h.Search("fomento", "", nil, 20)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].ID)
	assert.Equal(t, 1.0, hits[0].Score)
}

func TestSearch_TitleAndTagsIndexed(t *testing.T) {
	h := New(0)
	doc := testDoc("1", "Diretrizes", "texto qualquer")
	doc.Tags = []string{"cultura"}
	require.NoError(t, h.Add(doc))

	assert.Len(t, h.Search("diretrizes", "", nil, 20), 1)
	assert.Len(t, h.Search("cultura", "", nil, 20), 1)
}

func TestSearch_FuzzyMatch(t *testing.T) {
	h := New(2)
	require.NoError(t, h.Add(testDoc("1", "Edital", "processo de convenio com entidades")))

	// One edit away from the indexed term.
	hits := h.Search("convenios", "", nil, 20)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.5, hits[0].Score)

	// Distance disabled: no hit.
	assert.Empty(t, New(0).Search("convenios", "", nil, 20))
}

func TestSearch_FuzzySkipsShortWords(t *testing.T) {
	h := New(2)
	require.NoError(t, h.Add(testDoc("1", "Ata", "reuniao do conselho")))

	// "ato" is one edit from "ata" but too short for fuzzy matching.
	assert.Empty(t, h.Search("ato", "", nil, 20))
}

func TestSearch_CategoryAndTagFilters(t *testing.T) {
	h := New(0)
	a := testDoc("1", "Documento A", "fomento cultural")
	a.Category = "editais"
	a.Tags = []string{"cultura"}
	b := testDoc("2", "Documento B", "fomento esportivo")
	b.Category = "relatorios"
	require.NoError(t, h.Add(a))
	require.NoError(t, h.Add(b))

	hits := h.Search("fomento", "editais", nil, 20)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].ID)

	hits = h.Search("fomento", "", []string{"cultura"}, 20)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].ID)
}

func TestSearch_DeterministicOrder(t *testing.T) {
	h := New(0)
	for _, id := range []string{"b", "c", "a"} {
		require.NoError(t, h.Add(testDoc(id, "Termo "+id, "fomento")))
	}

	first := h.Search("fomento", "", nil, 20)
	require.Len(t, first, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{first[0].ID, first[1].ID, first[2].ID})

	for i := 0; i < 5; i++ {
		assert.Equal(t, first, h.Search("fomento", "", nil, 20))
	}
}

func TestSearch_Snippet(t *testing.T) {
	h := New(0)
	content := strings.Repeat("preâmbulo extenso ", 30) + "o fomento aparece aqui" + strings.Repeat(" epílogo", 30)
	require.NoError(t, h.Add(testDoc("1", "Doc", content)))

	hits := h.Search("fomento", "", nil, 20)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Snippet, "fomento")
	assert.True(t, strings.HasPrefix(hits[0].Snippet, "..."))
}

func TestSearch_ConcurrentAccess(t *testing.T) {
	h := New(2)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = h.Add(testDoc(string(rune('a'+i)), "Doc", "fomento cultural"))
		}(i)
		go func() {
			defer wg.Done()
			h.Search("fomento", "", nil, 20)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, h.Len())
}

func TestWithinDistance(t *testing.T) {
	assert.True(t, withinDistance("convenio", "convenios", 2))
	assert.True(t, withinDistance("fomento", "fomemto", 2))
	assert.False(t, withinDistance("fomento", "relatorio", 2))
	assert.False(t, withinDistance("abc", "abcdef", 2))
}

func TestIngestor_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manual.txt")
	require.NoError(t, os.WriteFile(path, []byte("conteúdo do manual"), 0o600))

	in := NewIngestor()
	doc, err := in.File(path, &Metadata{Category: "manuais", Tags: []string{"interno"}})
	require.NoError(t, err)

	assert.Equal(t, "manual", doc.Title)
	assert.Equal(t, "manuais", doc.Category)
	assert.Equal(t, "conteúdo do manual", doc.Content)
	assert.NotEmpty(t, doc.ID)

	// Same bytes, same id.
	again, err := in.File(path, nil)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)
}

func TestIngestor_UnsupportedFormat(t *testing.T) {
	_, err := NewIngestor().File("slides.pptx", nil)
	assert.Error(t, err)
}

func TestIngestor_CSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dados.csv")
	require.NoError(t, os.WriteFile(path, []byte("ano,total\n2023,10\n"), 0o600))

	doc, err := NewIngestor().File(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "ano, total\n2023, 10", doc.Content)
}

func TestIngestor_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("um"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`{"k":"v"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte{0x1}, 0o600))

	docs, err := NewIngestor().Directory(dir)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestInsights(t *testing.T) {
	h := New(0)
	now := time.Now()

	a := testDoc("1", "A", "conteúdo")
	a.Category = "editais"
	a.Tags = []string{"cultura", "fomento"}
	a.KeyConcepts = []string{"parceria"}
	a.Confidence = 0.9
	a.CreatedAt = now
	b := testDoc("2", "B", "conteúdo")
	b.Category = "relatorios"
	b.Tags = []string{"cultura"}
	b.Confidence = 0.3
	b.CreatedAt = now.AddDate(0, -2, 0)
	b.Department = "financeiro"
	require.NoError(t, h.Add(a))
	require.NoError(t, h.Add(b))

	got := h.Insights()

	assert.Equal(t, 2, got.TotalDocuments)
	assert.Equal(t, map[string]int{"editais": 1, "relatorios": 1}, got.Categories)
	require.NotEmpty(t, got.TopTags)
	assert.Equal(t, TermCount{Term: "cultura", Count: 2}, got.TopTags[0])
	assert.Equal(t, map[string]int{"financeiro": 1}, got.Departments)
	assert.Equal(t, 1, got.Coverage.HighConfidenceDocs)
	assert.Equal(t, 0.6, got.Coverage.AverageConfidence)
	assert.NotEmpty(t, got.Recommendations)
}

func TestInsights_Empty(t *testing.T) {
	got := New(0).Insights()
	assert.Zero(t, got.TotalDocuments)
	assert.Equal(t, []string{"Adicione documentos ao repositório para começar a gerar insights."}, got.Recommendations)
}
