// Package storage archives raw uploaded files so the original bytes survive
// ingestion. The record store only ever holds a back-reference; archive
// failures are advisory for the upload flow.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Ref points at one archived file.
type Ref struct {
	Key      string
	URL      string
	Provider string
}

// Archiver stores raw upload bytes under a unique key.
type Archiver interface {
	Save(ctx context.Context, data []byte, fileName, mimeType string) (Ref, error)
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// archiveKey builds a unique key from the upload time and a sanitized file
// name, mirroring the key shape used for cloud buckets.
func archiveKey(fileName string) string {
	sanitized := unsafeKeyChars.ReplaceAllString(fileName, "_")
	return fmt.Sprintf("uploads/%d-%s", time.Now().UnixMilli(), sanitized)
}

// LocalArchiver writes archived files under a base directory.
type LocalArchiver struct {
	dir string
}

// NewLocalArchiver creates the base directory if needed.
func NewLocalArchiver(dir string) (*LocalArchiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchiver{dir: dir}, nil
}

// Save writes data under a fresh key and returns the back-reference.
func (a *LocalArchiver) Save(_ context.Context, data []byte, fileName, _ string) (Ref, error) {
	key := archiveKey(fileName)
	path := filepath.Join(a.dir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Ref{}, fmt.Errorf("failed to create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Ref{}, fmt.Errorf("failed to archive %s (%d bytes): %w", fileName, len(data), err)
	}

	return Ref{Key: key, URL: "file://" + path, Provider: "local"}, nil
}
