package driven

import (
	"context"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// Normaliser transforms fetched bytes into document text.
// Each normaliser handles specific MIME types (e.g., PDF, HTML).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise transforms a raw document into a document with Content populated.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}
