package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDocumentNotFound is returned when a document id has no stored bytes.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentSource supplies the raw bytes of a document for indexing.
// Extraction and storage of uploads belong to a collaborator; the service
// only needs to read them back by id.
type DocumentSource interface {
	Load(ctx context.Context, documentID string) ([]byte, error)
}

// FilesystemSource reads documents from a directory, one file per
// document id.
type FilesystemSource struct {
	dir string
}

// NewFilesystemSource creates a source rooted at dir.
func NewFilesystemSource(dir string) *FilesystemSource {
	return &FilesystemSource{dir: dir}
}

// Load reads the bytes for a document id. Ids containing path separators
// or traversal segments are rejected.
func (s *FilesystemSource) Load(_ context.Context, documentID string) ([]byte, error) {
	if documentID == "" || strings.ContainsAny(documentID, `/\`) || strings.Contains(documentID, "..") {
		return nil, fmt.Errorf("%w: invalid id %q", ErrDocumentNotFound, documentID)
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, documentID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", documentID, err)
	}
	return raw, nil
}
