// Package readability extracts the main content of documentation pages
// with go-readability.
package readability

import (
	"strings"

	"github.com/fwojciec/docchat"
	"github.com/go-shiori/go-readability"
)

var _ docchat.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract main content from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content.
// Returns EINVALID for empty input or pages without main content.
func (e *Extractor) Extract(rawHTML string) (*docchat.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docchat.Errorf(docchat.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, docchat.WrapError(docchat.EINVALID, err, "failed to extract content")
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, docchat.Errorf(docchat.EINVALID, "no main content found")
	}

	return &docchat.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: article.Content,
	}, nil
}
