package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrPDFToolNotFound indicates the pdftotext binary is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils)")

// ErrNoText indicates the document yielded no extractable text, typically a
// scanned PDF without an OCR layer.
var ErrNoText = errors.New("no text could be extracted from the document")

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFReader converts PDF bytes to plain text via pdftotext.
type PDFReader struct {
	runner CommandRunner
}

// NewPDFReader creates a PDFReader backed by the real pdftotext binary.
func NewPDFReader() *PDFReader {
	return &PDFReader{runner: execRunner{}}
}

// NewPDFReaderWithRunner creates a PDFReader with a custom runner.
func NewPDFReaderWithRunner(runner CommandRunner) *PDFReader {
	return &PDFReader{runner: runner}
}

// Text extracts the full text of a PDF document. The bytes are staged in a
// temp file because pdftotext does not read PDF content from stdin.
func (r *PDFReader) Text(ctx context.Context, content []byte) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", ErrPDFToolNotFound
	}

	dir, err := os.MkdirTemp("", "aurahub-pdf-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", fmt.Errorf("write temp pdf: %w", err)
	}

	out, err := r.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}

	text := string(out)
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
