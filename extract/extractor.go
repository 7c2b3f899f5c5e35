// Package extract defines the text extraction collaborator interface.
//
// Real document formats (PDF and friends) are extracted by external
// collaborators; the pipeline only consumes per-page text. The package
// ships a plain-text reference implementation used by the CLI and tests.
package extract

import (
	"context"
	"strings"

	"github.com/poiesic/pagewise/core"
)

// Extractor turns raw document bytes into per-page text, ordered by page
// number starting at 1.
type Extractor interface {
	Extract(ctx context.Context, raw []byte) ([]core.PageText, error)
}

// PlainText extracts pages from UTF-8 text, treating form feed (\f) as the
// page delimiter. A document without form feeds is a single page.
type PlainText struct{}

var _ Extractor = (*PlainText)(nil)

// NewPlainText creates a plain-text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Extract splits raw on form feeds into 1-based pages. Pages that are
// empty after trimming are kept with empty text so page numbering stays
// aligned with the source document.
func (p *PlainText) Extract(ctx context.Context, raw []byte) ([]core.PageText, error) {
	parts := strings.Split(string(raw), "\f")
	pages := make([]core.PageText, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, core.PageText{
			Page: i + 1,
			Text: strings.TrimSpace(part),
		})
	}
	return pages, nil
}
