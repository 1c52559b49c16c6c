package driven

import (
	"context"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// AnalysisStore persists completed analyses.
type AnalysisStore interface {
	// Save stores a completed analysis.
	Save(ctx context.Context, rec *domain.AnalysisRecord) error

	// Get retrieves an analysis by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.AnalysisRecord, error)

	// List returns the most recent analyses, newest first.
	List(ctx context.Context, limit int) ([]domain.AnalysisRecord, error)

	// Close releases resources.
	Close() error
}
