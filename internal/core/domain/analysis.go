package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultQuery is used when a request carries no question.
const DefaultQuery = "Analyze this financial document and extract key insights"

// InputKind identifies how a request's input should be turned into text.
type InputKind string

// Supported input kinds.
const (
	InputKindPDF  InputKind = "pdf"
	InputKindURL  InputKind = "url"
	InputKindText InputKind = "text"
)

// IsValid returns true if the input kind is recognised.
func (k InputKind) IsValid() bool {
	switch k {
	case InputKindPDF, InputKindURL, InputKindText:
		return true
	default:
		return false
	}
}

// AnalysisStyle selects the kind of report the model should write.
type AnalysisStyle string

// Supported analysis styles.
const (
	StyleComprehensiveReview AnalysisStyle = "comprehensive-review"
	StyleExecutiveSummary    AnalysisStyle = "executive-summary"
	StyleRiskAssessment      AnalysisStyle = "risk-assessment"
	StyleFinancialMetrics    AnalysisStyle = "financial-metrics"
)

// AllAnalysisStyles returns every supported style.
func AllAnalysisStyles() []AnalysisStyle {
	return []AnalysisStyle{
		StyleComprehensiveReview,
		StyleExecutiveSummary,
		StyleRiskAssessment,
		StyleFinancialMetrics,
	}
}

// IsValid returns true if the style is recognised.
func (s AnalysisStyle) IsValid() bool {
	for _, v := range AllAnalysisStyles() {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns the human-readable name used in prompts and reports.
func (s AnalysisStyle) Label() string {
	switch s {
	case StyleComprehensiveReview:
		return "Comprehensive Review"
	case StyleExecutiveSummary:
		return "Executive Summary"
	case StyleRiskAssessment:
		return "Risk Assessment"
	case StyleFinancialMetrics:
		return "Financial Metrics"
	default:
		return unknownDescription
	}
}

// FocusArea narrows the analysis to one aspect of the document.
type FocusArea string

// Supported focus areas.
const (
	FocusGeneralOverview      FocusArea = "general-overview"
	FocusRiskAndRevenue       FocusArea = "risk-&-revenue"
	FocusProfitabilityMargins FocusArea = "profitability-&-margins"
	FocusDebtAndLiquidity     FocusArea = "debt-&-liquidity"
)

// AllFocusAreas returns every supported focus area.
func AllFocusAreas() []FocusArea {
	return []FocusArea{
		FocusGeneralOverview,
		FocusRiskAndRevenue,
		FocusProfitabilityMargins,
		FocusDebtAndLiquidity,
	}
}

// IsValid returns true if the focus area is recognised.
func (f FocusArea) IsValid() bool {
	for _, v := range AllFocusAreas() {
		if f == v {
			return true
		}
	}
	return false
}

// Label returns the human-readable name used in prompts and reports.
func (f FocusArea) Label() string {
	switch f {
	case FocusGeneralOverview:
		return "General Overview"
	case FocusRiskAndRevenue:
		return "Risk & Revenue"
	case FocusProfitabilityMargins:
		return "Profitability & Margins"
	case FocusDebtAndLiquidity:
		return "Debt & Liquidity"
	default:
		return unknownDescription
	}
}

// AnalysisRequest is one document analysis request.
type AnalysisRequest struct {
	Kind  InputKind     `json:"type"`
	Input string        `json:"input"`
	Query string        `json:"query,omitempty"`
	Style AnalysisStyle `json:"analysis-type,omitempty"`
	Focus FocusArea     `json:"focus-area,omitempty"`
}

// WithDefaults fills in the optional fields.
func (r AnalysisRequest) WithDefaults() AnalysisRequest {
	if strings.TrimSpace(r.Query) == "" {
		r.Query = DefaultQuery
	}
	if r.Style == "" {
		r.Style = StyleComprehensiveReview
	}
	if r.Focus == "" {
		r.Focus = FocusGeneralOverview
	}
	return r
}

// Validate checks the request's enumerations and input.
// Call WithDefaults first so optional fields are populated.
func (r AnalysisRequest) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: input type %q must be one of pdf, url, text", ErrInvalidInput, r.Kind)
	}
	if strings.TrimSpace(r.Input) == "" {
		return fmt.Errorf("%w: input is required", ErrInvalidInput)
	}
	if !r.Style.IsValid() {
		return fmt.Errorf("%w: unknown analysis type %q", ErrInvalidInput, r.Style)
	}
	if !r.Focus.IsValid() {
		return fmt.Errorf("%w: unknown focus area %q", ErrInvalidInput, r.Focus)
	}
	return nil
}

// Sentiment is the overall tone of a document.
type Sentiment string

// Supported sentiments.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// ParseSentiment matches s case-insensitively, returning ok=false when unknown.
func ParseSentiment(s string) (Sentiment, bool) {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return v, true
	default:
		return SentimentNeutral, false
	}
}

// Direction is the movement of a metric relative to its prior period.
type Direction string

// Supported directions.
const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionFlat    Direction = "flat"
	DirectionUnknown Direction = "unknown"
)

// ParseDirection matches s case-insensitively, returning DirectionUnknown otherwise.
func ParseDirection(s string) Direction {
	switch v := Direction(strings.ToLower(strings.TrimSpace(s))); v {
	case DirectionUp, DirectionDown, DirectionFlat, DirectionUnknown:
		return v
	default:
		return DirectionUnknown
	}
}

// MetricDetail is one extracted financial metric.
type MetricDetail struct {
	Value     *string   `json:"value" jsonschema:"description=Reported figure as written in the document"`
	Change    *string   `json:"change" jsonschema:"description=Change versus the prior period"`
	Direction Direction `json:"direction" jsonschema:"enum=up,enum=down,enum=flat,enum=unknown"`
}

// UnknownMetric returns a metric with no value, no change and unknown direction.
func UnknownMetric() MetricDetail {
	return MetricDetail{Direction: DirectionUnknown}
}

// MetricNames lists the recognised metric keys in report order.
func MetricNames() []string {
	return []string{"revenue", "eps", "op_margin", "free_cash_flow", "profit", "guidance", "debt", "cash_flow"}
}

// KeyMetrics is the fixed set of metrics extracted from a document.
type KeyMetrics struct {
	Revenue      MetricDetail `json:"revenue"`
	EPS          MetricDetail `json:"eps"`
	OpMargin     MetricDetail `json:"op_margin"`
	FreeCashFlow MetricDetail `json:"free_cash_flow"`
	Profit       MetricDetail `json:"profit"`
	Guidance     MetricDetail `json:"guidance"`
	Debt         MetricDetail `json:"debt"`
	CashFlow     MetricDetail `json:"cash_flow"`
}

// UnknownKeyMetrics returns a metric set with every metric unknown.
func UnknownKeyMetrics() KeyMetrics {
	var m KeyMetrics
	for _, name := range MetricNames() {
		m.Set(name, UnknownMetric())
	}
	return m
}

func (m *KeyMetrics) field(name string) *MetricDetail {
	switch name {
	case "revenue":
		return &m.Revenue
	case "eps":
		return &m.EPS
	case "op_margin":
		return &m.OpMargin
	case "free_cash_flow":
		return &m.FreeCashFlow
	case "profit":
		return &m.Profit
	case "guidance":
		return &m.Guidance
	case "debt":
		return &m.Debt
	case "cash_flow":
		return &m.CashFlow
	default:
		return nil
	}
}

// Get returns the named metric; unknown names return an unknown metric.
func (m KeyMetrics) Get(name string) MetricDetail {
	if f := m.field(name); f != nil {
		return *f
	}
	return UnknownMetric()
}

// Set stores the named metric and reports whether the name was recognised.
func (m *KeyMetrics) Set(name string, d MetricDetail) bool {
	f := m.field(name)
	if f == nil {
		return false
	}
	*f = d
	return true
}

// AnalysisResult is the normalised structured analysis of a document.
type AnalysisResult struct {
	Summary         []string   `json:"summary" jsonschema:"description=Key takeaways one per entry"`
	Sentiment       Sentiment  `json:"sentiment" jsonschema:"enum=positive,enum=negative,enum=neutral,enum=mixed"`
	RiskFactors     []string   `json:"risk_factors"`
	Opportunities   []string   `json:"opportunities"`
	KeyMetrics      KeyMetrics `json:"key_metrics"`
	ConfidenceScore float64    `json:"confidence_score" jsonschema:"minimum=0,maximum=100"`
	SourcesUsed     int        `json:"sources_used" jsonschema:"minimum=0"`
	CitationsUsed   int        `json:"citations_used" jsonschema:"minimum=0"`
}

// AnalysisRecord is a completed analysis together with its request.
type AnalysisRecord struct {
	ID             string          `json:"id"`
	Request        AnalysisRequest `json:"request"`
	Result         AnalysisResult  `json:"result"`
	ChunkCount     int             `json:"chunk_count"`
	EmbeddingModel string          `json:"embedding_model"`
	LLMModel       string          `json:"llm_model"`
	Duration       time.Duration   `json:"duration"`
	CreatedAt      time.Time       `json:"created_at"`
}
