package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// defaultRecentLimit is used when recent_analyses is called without a limit.
const defaultRecentLimit = 10

// AnalyzeInput is the input schema for the analyze_document tool.
type AnalyzeInput struct {
	Type         string `json:"type" jsonschema:"input type: pdf (URL or local path) or url (web page) or text (pasted text)"`
	Input        string `json:"input" jsonschema:"the PDF location or page URL or document text"`
	Query        string `json:"query,omitempty" jsonschema:"question to focus the analysis on"`
	AnalysisType string `json:"analysis_type,omitempty" jsonschema:"comprehensive-review or executive-summary or risk-assessment or financial-metrics"`
	FocusArea    string `json:"focus_area,omitempty" jsonschema:"general-overview or risk-&-revenue or profitability-&-margins or debt-&-liquidity"`
}

// MetricOutput is one extracted metric.
type MetricOutput struct {
	Value     *string `json:"value"`
	Change    *string `json:"change"`
	Direction string  `json:"direction"`
}

// AnalysisOutput is the output schema for the analyze_document tool.
type AnalysisOutput struct {
	ID              string                  `json:"id"`
	Summary         []string                `json:"summary"`
	Sentiment       string                  `json:"sentiment"`
	RiskFactors     []string                `json:"risk_factors"`
	Opportunities   []string                `json:"opportunities"`
	KeyMetrics      map[string]MetricOutput `json:"key_metrics"`
	ConfidenceScore float64                 `json:"confidence_score"`
	SourcesUsed     int                     `json:"sources_used"`
	CitationsUsed   int                     `json:"citations_used"`
	ChunkCount      int                     `json:"chunk_count"`
	DurationMS      int64                   `json:"duration_ms"`
}

// RecentInput is the input schema for the recent_analyses tool.
type RecentInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of analyses to return (default 10)"`
}

// RecentOutput is the output schema for the recent_analyses tool.
type RecentOutput struct {
	Analyses []RecentAnalysis `json:"analyses"`
	Count    int              `json:"count"`
}

// RecentAnalysis summarises one stored analysis.
type RecentAnalysis struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Input           string  `json:"input"`
	Sentiment       string  `json:"sentiment"`
	ConfidenceScore float64 `json:"confidence_score"`
	CreatedAt       string  `json:"created_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_document",
		Description: "Analyse a financial document and return summary, sentiment, risks, opportunities and key metrics",
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recent_analyses",
		Description: "List the most recent analyses, newest first",
	}, s.handleRecent)
}

// handleAnalyze handles the analyze_document tool invocation.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, AnalysisOutput, error) {
	req := domain.AnalysisRequest{
		Kind:  domain.InputKind(input.Type),
		Input: input.Input,
		Query: input.Query,
		Style: domain.AnalysisStyle(input.AnalysisType),
		Focus: domain.FocusArea(input.FocusArea),
	}

	rec, err := s.ports.Analysis.Analyse(ctx, req)
	if err != nil {
		return nil, AnalysisOutput{}, err
	}

	return nil, toAnalysisOutput(rec), nil
}

// handleRecent handles the recent_analyses tool invocation.
func (s *Server) handleRecent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RecentInput,
) (*mcp.CallToolResult, RecentOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	records, err := s.ports.Analysis.Recent(ctx, limit)
	if err != nil {
		return nil, RecentOutput{}, err
	}

	output := RecentOutput{
		Analyses: make([]RecentAnalysis, len(records)),
		Count:    len(records),
	}
	for i := range records {
		output.Analyses[i] = RecentAnalysis{
			ID:              records[i].ID,
			Type:            string(records[i].Request.Kind),
			Input:           truncate(records[i].Request.Input, 120),
			Sentiment:       string(records[i].Result.Sentiment),
			ConfidenceScore: records[i].Result.ConfidenceScore,
			CreatedAt:       records[i].CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	return nil, output, nil
}

func toAnalysisOutput(rec *domain.AnalysisRecord) AnalysisOutput {
	res := rec.Result
	metrics := make(map[string]MetricOutput, len(domain.MetricNames()))
	for _, name := range domain.MetricNames() {
		m := res.KeyMetrics.Get(name)
		metrics[name] = MetricOutput{Value: m.Value, Change: m.Change, Direction: string(m.Direction)}
	}

	return AnalysisOutput{
		ID:              rec.ID,
		Summary:         res.Summary,
		Sentiment:       string(res.Sentiment),
		RiskFactors:     res.RiskFactors,
		Opportunities:   res.Opportunities,
		KeyMetrics:      metrics,
		ConfidenceScore: res.ConfidenceScore,
		SourcesUsed:     res.SourcesUsed,
		CitationsUsed:   res.CitationsUsed,
		ChunkCount:      rec.ChunkCount,
		DurationMS:      rec.Duration.Milliseconds(),
	}
}

// truncate shortens pasted text inputs for listings.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
