package driven

import (
	"context"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// TextSource turns a request input into plain text.
// For text inputs the payload is the text itself; for url and pdf inputs
// it is a location to fetch. Failures wrap domain.ErrExtractionFailure.
type TextSource interface {
	Extract(ctx context.Context, kind domain.InputKind, payload string) (*domain.Document, error)
}
