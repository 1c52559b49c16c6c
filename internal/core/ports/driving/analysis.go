package driving

import (
	"context"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// AnalysisService runs document analyses for external actors.
type AnalysisService interface {
	// Analyse extracts, retrieves, generates and normalises one request.
	Analyse(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisRecord, error)

	// Stats returns the current pipeline state.
	Stats() domain.PipelineStats

	// Recent returns the most recent analyses, newest first.
	Recent(ctx context.Context, limit int) ([]domain.AnalysisRecord, error)

	// Get returns a stored analysis by ID.
	Get(ctx context.Context, id string) (*domain.AnalysisRecord, error)
}
