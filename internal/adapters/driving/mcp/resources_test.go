package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestExtractAnalysisID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid analysis URI", "finsight://analyses/rec-123", "rec-123"},
		{"invalid prefix", "file://analyses/rec-123", ""},
		{"nested path", "finsight://analyses/rec-123/extra", ""},
		{"list URI", "finsight://analyses", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractAnalysisID(tt.uri))
		})
	}
}

func TestServer_handleStatsResource(t *testing.T) {
	svc := &mockAnalysisService{stats: domain.PipelineStats{
		VectorStore:    domain.IndexStats{TotalVectors: 12, Dimension: 1536, TotalTexts: 12},
		EmbeddingModel: "text-embedding-3-small",
		ChunkConfig:    domain.ChunkConfig{ChunkSize: 1000, ChunkOverlap: 200},
		TopK:           5,
	}}
	server, err := NewServer(&Ports{Analysis: svc})
	require.NoError(t, err)

	result, err := server.handleStatsResource(context.Background(), makeReadResourceRequest("finsight://stats"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	assert.Contains(t, result.Contents[0].Text, `"total_vectors": 12`)
	assert.Contains(t, result.Contents[0].Text, `"chunk_size": 1000`)
}

func TestServer_handleAnalysesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns recent analyses", func(t *testing.T) {
		svc := &mockAnalysisService{records: []domain.AnalysisRecord{*testRecord()}}
		server, err := NewServer(&Ports{Analysis: svc})
		require.NoError(t, err)

		result, err := server.handleAnalysesResource(ctx, makeReadResourceRequest("finsight://analyses"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, "rec-1")
		assert.Equal(t, defaultRecentLimit, svc.lastLimit)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{err: errors.New("database error")}})
		require.NoError(t, err)

		_, err = server.handleAnalysesResource(ctx, makeReadResourceRequest("finsight://analyses"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing analyses")
	})
}

func TestServer_handleAnalysisResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored analysis", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{record: testRecord()}})
		require.NoError(t, err)

		result, err := server.handleAnalysisResource(ctx, makeReadResourceRequest("finsight://analyses/rec-1"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"sentiment": "positive"`)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{record: testRecord()}})
		require.NoError(t, err)

		_, err = server.handleAnalysisResource(ctx, makeReadResourceRequest("finsight://analyses/other"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting analysis")
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
		require.NoError(t, err)

		_, err = server.handleAnalysisResource(ctx, makeReadResourceRequest("finsight://other/x"))

		require.Error(t, err)
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{err: errors.New("disk error")}})
		require.NoError(t, err)

		_, err = server.handleAnalysisResource(ctx, makeReadResourceRequest("finsight://analyses/rec-1"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting analysis")
	})
}
