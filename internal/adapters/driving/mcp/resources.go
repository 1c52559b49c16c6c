package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for finsight resources.
	uriScheme = "finsight://"

	mimeJSON = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Vector index size, models and chunking configuration",
		MIMEType:    mimeJSON,
	}, s.handleStatsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "analyses",
		Name:        "analyses",
		Description: "Most recent analyses, newest first",
		MIMEType:    mimeJSON,
	}, s.handleAnalysesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "analyses/{analysisId}",
		Name:        "analysis",
		Description: "A stored analysis with its request and result",
		MIMEType:    mimeJSON,
	}, s.handleAnalysisResource)
}

// handleStatsResource returns the pipeline state.
func (s *Server) handleStatsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.ports.Analysis.Stats())
}

// handleAnalysesResource returns the recent analyses.
func (s *Server) handleAnalysesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.Analysis.Recent(ctx, defaultRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return jsonResource(req.Params.URI, records)
}

// handleAnalysisResource returns one stored analysis.
func (s *Server) handleAnalysisResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractAnalysisID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rec, err := s.ports.Analysis.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}
	return jsonResource(req.Params.URI, rec)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractAnalysisID extracts the ID from a URI like finsight://analyses/{analysisId}.
func extractAnalysisID(uri string) string {
	const prefix = uriScheme + "analyses/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
