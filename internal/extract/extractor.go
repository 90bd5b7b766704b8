package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/google/uuid"
)

// ErrNoText indicates the file was parsed but yielded no extractable text.
// Ingestion must not proceed on such input.
var ErrNoText = errors.New("no extractable text content")

// antiword converts legacy Word 97-2003 documents; it is an external binary.
const (
	antiwordBinary  = "antiword"
	antiwordTimeout = 30 * time.Second
)

// Extractor turns an uploaded byte buffer into plain text based on the
// declared media type and file name. Unknown types are treated as UTF-8 text.
type Extractor struct{}

// New creates an extractor
func New() *Extractor {
	return &Extractor{}
}

// Text extracts plain text from data. The returned text is never empty: a
// parse that produces only whitespace fails with ErrNoText.
func (e *Extractor) Text(ctx context.Context, data []byte, fileName, mimeType string) (string, error) {
	var (
		text string
		err  error
	)

	switch {
	case strings.Contains(mimeType, "pdf") || hasExt(fileName, ".pdf"):
		text, err = e.fitzText(data)
		if err != nil {
			return "", fmt.Errorf("PDF parsing failed (%d bytes): %w", len(data), err)
		}
	case hasExt(fileName, ".epub"):
		text, err = e.fitzText(data)
		if err != nil {
			return "", fmt.Errorf("EPUB parsing failed (%d bytes): %w", len(data), err)
		}
	case strings.Contains(mimeType, "wordprocessingml") || hasExt(fileName, ".docx"):
		text, err = e.docxText(data)
		if err != nil {
			return "", fmt.Errorf("Word document parsing failed (%d bytes): %w", len(data), err)
		}
	case strings.Contains(mimeType, "msword") || hasExt(fileName, ".doc"):
		text, err = e.docText(ctx, data)
		if err != nil {
			return "", fmt.Errorf(".doc parsing failed (%d bytes): %w", len(data), err)
		}
	default:
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("extract %s: %w", fileName, ErrNoText)
	}
	return text, nil
}

// fitzText extracts page text from PDF and EPUB buffers via MuPDF.
func (e *Extractor) fitzText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	var parts []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err == nil && strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// docxText reads word/document.xml out of the .docx zip container and strips
// the markup, keeping paragraph breaks.
func (e *Extractor) docxText(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx container: %w", err)
	}

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read document.xml: %w", err)
		}

		body := string(raw)
		body = strings.ReplaceAll(body, "</w:p>", "</w:p>\n")
		return stripTags(body), nil
	}
	return "", fmt.Errorf("docx container has no word/document.xml")
}

// docText runs antiword over a temp copy of a legacy .doc file.
func (e *Extractor) docText(ctx context.Context, data []byte) (string, error) {
	path, err := exec.LookPath(antiwordBinary)
	if err != nil {
		return "", fmt.Errorf("antiword is not installed (apt-get install antiword / brew install antiword): %w", err)
	}

	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("doc-%s.doc", uuid.NewString()))
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	defer func() {
		// Cleanup is advisory: a leftover temp file never fails the extraction.
		if err := os.Remove(tmpPath); err != nil {
			log.Printf("Warning: failed to remove temp file %s: %v", tmpPath, err)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, antiwordTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, path, tmpPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("antiword timed out after %s", antiwordTimeout)
		}
		return "", fmt.Errorf("antiword failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// stripTags removes markup, writing a space per closed tag so adjacent runs
// stay separated.
func stripTags(markup string) string {
	var result strings.Builder
	inTag := false
	for _, r := range markup {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return result.String()
}

func hasExt(fileName, ext string) bool {
	return strings.EqualFold(filepath.Ext(fileName), ext)
}
