package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisRequest_WithDefaults(t *testing.T) {
	req := AnalysisRequest{Kind: InputKindText, Input: "body"}.WithDefaults()

	assert.Equal(t, DefaultQuery, req.Query)
	assert.Equal(t, StyleComprehensiveReview, req.Style)
	assert.Equal(t, FocusGeneralOverview, req.Focus)
	require.NoError(t, req.Validate())
}

func TestAnalysisRequest_WithDefaults_KeepsValues(t *testing.T) {
	req := AnalysisRequest{
		Kind:  InputKindURL,
		Input: "https://example.com/10-k",
		Query: "What changed in guidance?",
		Style: StyleRiskAssessment,
		Focus: FocusDebtAndLiquidity,
	}.WithDefaults()

	assert.Equal(t, "What changed in guidance?", req.Query)
	assert.Equal(t, StyleRiskAssessment, req.Style)
	assert.Equal(t, FocusDebtAndLiquidity, req.Focus)
}

func TestAnalysisRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  AnalysisRequest
	}{
		{"unknown kind", AnalysisRequest{Kind: "docx", Input: "x"}},
		{"empty input", AnalysisRequest{Kind: InputKindText, Input: "   "}},
		{"unknown style", AnalysisRequest{Kind: InputKindText, Input: "x", Style: "poem"}},
		{"unknown focus", AnalysisRequest{Kind: InputKindText, Input: "x", Focus: "esg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.WithDefaults().Validate()
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestStyleAndFocusLabels(t *testing.T) {
	assert.Equal(t, "Risk Assessment", StyleRiskAssessment.Label())
	assert.Equal(t, "Profitability & Margins", FocusProfitabilityMargins.Label())
	assert.Equal(t, "Unknown", AnalysisStyle("x").Label())
	assert.Len(t, AllAnalysisStyles(), 4)
	assert.Len(t, AllFocusAreas(), 4)
}

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		in     string
		want   Sentiment
		wantOK bool
	}{
		{"positive", SentimentPositive, true},
		{"NEGATIVE", SentimentNegative, true},
		{" Mixed ", SentimentMixed, true},
		{"neutral", SentimentNeutral, true},
		{"bullish", SentimentNeutral, false},
		{"", SentimentNeutral, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSentiment(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, DirectionUp, ParseDirection("UP"))
	assert.Equal(t, DirectionDown, ParseDirection("down"))
	assert.Equal(t, DirectionFlat, ParseDirection(" flat"))
	assert.Equal(t, DirectionUnknown, ParseDirection("sideways"))
}

func TestKeyMetrics_GetSet(t *testing.T) {
	m := UnknownKeyMetrics()
	for _, name := range MetricNames() {
		assert.Equal(t, DirectionUnknown, m.Get(name).Direction, name)
		assert.Nil(t, m.Get(name).Value, name)
	}

	v := "$4.2B"
	assert.True(t, m.Set("free_cash_flow", MetricDetail{Value: &v, Direction: DirectionUp}))
	assert.Equal(t, "$4.2B", *m.FreeCashFlow.Value)
	assert.Equal(t, DirectionUp, m.Get("free_cash_flow").Direction)

	assert.False(t, m.Set("ebitda", UnknownMetric()))
	assert.Equal(t, UnknownMetric(), m.Get("ebitda"))
}
