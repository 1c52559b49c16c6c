package plaintext

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// byteOrderMark is stripped from the start of content.
const byteOrderMark = "\ufeff"

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"application/json",
	}
}

// Normalise converts fetched text bytes to a document.
// Invalid UTF-8 sequences are replaced so later stages can count runes.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ToValidUTF8(string(raw.Content), "\uFFFD")
	content = strings.TrimPrefix(content, byteOrderMark)

	return &domain.Document{
		Kind:    domain.InputKindURL,
		URI:     raw.URI,
		Title:   extractTitle(raw.URI),
		Content: content,
	}, nil
}

// extractTitle extracts a human-readable title from a URI.
func extractTitle(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Host != "" {
		p = u.Path
	}

	filename := path.Base(p)
	if filename == "/" || filename == "." {
		return ""
	}

	// Remove common extensions for cleaner title
	filename = strings.TrimSuffix(filename, path.Ext(filename))

	// Replace underscores and dashes with spaces
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}
