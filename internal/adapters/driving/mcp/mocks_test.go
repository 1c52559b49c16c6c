package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	record  *domain.AnalysisRecord
	records []domain.AnalysisRecord
	stats   domain.PipelineStats
	err     error

	lastRequest domain.AnalysisRequest
	lastLimit   int
}

func (m *mockAnalysisService) Analyse(_ context.Context, req domain.AnalysisRequest) (*domain.AnalysisRecord, error) {
	m.lastRequest = req
	return m.record, m.err
}

func (m *mockAnalysisService) Stats() domain.PipelineStats {
	return m.stats
}

func (m *mockAnalysisService) Recent(_ context.Context, limit int) ([]domain.AnalysisRecord, error) {
	m.lastLimit = limit
	return m.records, m.err
}

func (m *mockAnalysisService) Get(_ context.Context, id string) (*domain.AnalysisRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.record == nil || m.record.ID != id {
		return nil, domain.ErrNotFound
	}
	return m.record, nil
}

func testRecord() *domain.AnalysisRecord {
	revenue, change := "$4.2B", "+12%"
	metrics := domain.UnknownKeyMetrics()
	metrics.Revenue = domain.MetricDetail{Value: &revenue, Change: &change, Direction: domain.DirectionUp}

	return &domain.AnalysisRecord{
		ID:      "rec-1",
		Request: domain.AnalysisRequest{Kind: domain.InputKindURL, Input: "https://example.com/q3"},
		Result: domain.AnalysisResult{
			Summary:         []string{"Revenue grew 12%"},
			Sentiment:       domain.SentimentPositive,
			RiskFactors:     []string{"FX exposure"},
			Opportunities:   []string{"New markets"},
			KeyMetrics:      metrics,
			ConfidenceScore: 85,
			SourcesUsed:     5,
			CitationsUsed:   3,
		},
		ChunkCount: 14,
		Duration:   1500 * time.Millisecond,
		CreatedAt:  time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}
