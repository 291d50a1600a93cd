package hub

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Metadata carries optional fields applied to an ingested file.
type Metadata struct {
	Title      string
	Category   string
	Author     string
	Department string
	Tags       []string
	Type       DocumentType
}

// Ingestor turns files into knowledge documents.
type Ingestor struct {
	supported map[string]bool
}

// NewIngestor creates an Ingestor for txt, json and csv files.
func NewIngestor() *Ingestor {
	return &Ingestor{supported: map[string]bool{
		".txt":  true,
		".json": true,
		".csv":  true,
	}}
}

// File ingests a single file. The document id is derived from the file
// content, so re-ingesting an unchanged file yields the same id.
func (in *Ingestor) File(path string, meta *Metadata) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !in.supported[ext] {
		return Document{}, fmt.Errorf("unsupported file format %q", ext)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	content, err := extractContent(raw, ext)
	if err != nil {
		return Document{}, fmt.Errorf("extract %s: %w", path, err)
	}

	sum := sha256.Sum256(raw)
	doc := Document{
		ID:      hex.EncodeToString(sum[:16]),
		Title:   strings.TrimSuffix(filepath.Base(path), ext),
		Content: content,
		Source:  path,
	}
	if meta != nil {
		if meta.Title != "" {
			doc.Title = meta.Title
		}
		doc.Category = meta.Category
		doc.Author = meta.Author
		doc.Department = meta.Department
		doc.Tags = meta.Tags
		doc.Type = meta.Type
	}
	doc.applyDefaults()
	return doc, nil
}

// Directory ingests every supported file under root, recursively. Files that
// fail to ingest are skipped, not fatal.
func (in *Ingestor) Directory(root string) ([]Document, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	var docs []Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		doc, err := in.File(path, nil)
		if err != nil {
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return docs, nil
}

func extractContent(raw []byte, ext string) (string, error) {
	switch ext {
	case ".json":
		var data any
		if err := json.Unmarshal(raw, &data); err != nil {
			return "", err
		}
		pretty, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(pretty), nil
	case ".csv":
		records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
		if err != nil {
			return "", err
		}
		lines := make([]string, len(records))
		for i, row := range records {
			lines[i] = strings.Join(row, ", ")
		}
		return strings.Join(lines, "\n"), nil
	default:
		return string(raw), nil
	}
}
