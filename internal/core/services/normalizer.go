package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// NormalizeStage reports which path produced a normalised result.
type NormalizeStage string

// Normalisation stages.
const (
	// NormalizeStrict means the model output matched the response contract exactly.
	NormalizeStrict NormalizeStage = "strict"
	// NormalizeCoerced means fields were repaired one by one.
	NormalizeCoerced NormalizeStage = "coerced"
	// NormalizeDegraded means the output could not be parsed at all.
	NormalizeDegraded NormalizeStage = "degraded"
)

// Fixed texts used when the model output cannot be used as is.
const (
	placeholderSummary = "Analysis completed"
	degradedSummary    = "Analysis completed but structured output failed"
	degradedRisk       = "Unable to extract structured insights"

	defaultConfidence  = 50.0
	degradedConfidence = 30.0
)

// Normalize turns raw model output into a valid AnalysisResult.
// It never fails: malformed output produces a degraded result.
func Normalize(raw string, chunkCount int) domain.AnalysisResult {
	res, _ := NormalizeWithStatus(raw, chunkCount)
	return res
}

// NormalizeWithStatus is Normalize, also reporting which stage produced the result.
func NormalizeWithStatus(raw string, chunkCount int) (domain.AnalysisResult, NormalizeStage) {
	if chunkCount < 0 {
		chunkCount = 0
	}

	body, ok := extractObject(raw)
	if !ok {
		return DegradedResult(chunkCount), NormalizeDegraded
	}

	if res, err := decodeStrict(body, chunkCount); err == nil {
		return res, NormalizeStrict
	}

	return coerce(gjson.Parse(body), chunkCount), NormalizeCoerced
}

// DegradedResult is the low-confidence result used when model output is unusable.
func DegradedResult(chunkCount int) domain.AnalysisResult {
	return domain.AnalysisResult{
		Summary:         []string{degradedSummary},
		Sentiment:       domain.SentimentNeutral,
		RiskFactors:     []string{degradedRisk},
		Opportunities:   []string{},
		KeyMetrics:      domain.UnknownKeyMetrics(),
		ConfidenceScore: degradedConfidence,
		SourcesUsed:     chunkCount,
		CitationsUsed:   chunkCount,
	}
}

// extractObject returns the outermost JSON object in raw, dropping any
// surrounding code fence or prose. ok is false if no valid object is found.
func extractObject(raw string) (string, bool) {
	first := strings.IndexByte(raw, '{')
	last := strings.LastIndexByte(raw, '}')
	if first < 0 || last <= first {
		return "", false
	}
	body := raw[first : last+1]
	if !gjson.Valid(body) {
		return "", false
	}
	return body, true
}

// strictResult mirrors the response contract with every field required.
type strictResult struct {
	Summary         []string                        `json:"summary"`
	Sentiment       *string                         `json:"sentiment"`
	RiskFactors     []string                        `json:"risk_factors"`
	Opportunities   []string                        `json:"opportunities"`
	KeyMetrics      map[string]*domain.MetricDetail `json:"key_metrics"`
	ConfidenceScore *float64                        `json:"confidence_score"`
	SourcesUsed     *int                            `json:"sources_used,omitempty"`
	CitationsUsed   *int                            `json:"citations_used"`
}

// decodeStrict accepts only output that already satisfies the contract.
func decodeStrict(body string, chunkCount int) (domain.AnalysisResult, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var s strictResult
	if err := dec.Decode(&s); err != nil {
		return domain.AnalysisResult{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return domain.AnalysisResult{}, fmt.Errorf("trailing data after object")
	}

	switch {
	case len(s.Summary) == 0:
		return domain.AnalysisResult{}, fmt.Errorf("summary is empty")
	case s.Sentiment == nil:
		return domain.AnalysisResult{}, fmt.Errorf("sentiment is missing")
	case s.RiskFactors == nil || s.Opportunities == nil:
		return domain.AnalysisResult{}, fmt.Errorf("risk_factors and opportunities are required")
	case s.ConfidenceScore == nil || *s.ConfidenceScore < 0 || *s.ConfidenceScore > 100:
		return domain.AnalysisResult{}, fmt.Errorf("confidence_score out of range")
	case s.CitationsUsed == nil || *s.CitationsUsed < 0 || *s.CitationsUsed > chunkCount:
		return domain.AnalysisResult{}, fmt.Errorf("citations_used out of range")
	case s.KeyMetrics == nil:
		return domain.AnalysisResult{}, fmt.Errorf("key_metrics is missing")
	}

	for _, item := range s.Summary {
		if strings.TrimSpace(item) == "" {
			return domain.AnalysisResult{}, fmt.Errorf("summary contains a blank item")
		}
	}

	sentiment := domain.Sentiment(*s.Sentiment)
	if parsed, ok := domain.ParseSentiment(*s.Sentiment); !ok || parsed != sentiment {
		return domain.AnalysisResult{}, fmt.Errorf("sentiment %q is not canonical", *s.Sentiment)
	}

	metrics := domain.UnknownKeyMetrics()
	for name, d := range s.KeyMetrics {
		if d == nil {
			return domain.AnalysisResult{}, fmt.Errorf("metric %q is null", name)
		}
		if domain.ParseDirection(string(d.Direction)) != d.Direction {
			return domain.AnalysisResult{}, fmt.Errorf("metric %q has direction %q", name, d.Direction)
		}
		if !metrics.Set(name, *d) {
			return domain.AnalysisResult{}, fmt.Errorf("unknown metric %q", name)
		}
	}

	return domain.AnalysisResult{
		Summary:         s.Summary,
		Sentiment:       sentiment,
		RiskFactors:     s.RiskFactors,
		Opportunities:   s.Opportunities,
		KeyMetrics:      metrics,
		ConfidenceScore: *s.ConfidenceScore,
		SourcesUsed:     chunkCount,
		CitationsUsed:   *s.CitationsUsed,
	}, nil
}

// coerce repairs each field of a parsed object independently.
func coerce(obj gjson.Result, chunkCount int) domain.AnalysisResult {
	sentiment, _ := domain.ParseSentiment(obj.Get("sentiment").String())

	return domain.AnalysisResult{
		Summary:         coerceSummary(obj.Get("summary")),
		Sentiment:       sentiment,
		RiskFactors:     coerceList(obj.Get("risk_factors")),
		Opportunities:   coerceList(obj.Get("opportunities")),
		KeyMetrics:      coerceMetrics(obj.Get("key_metrics")),
		ConfidenceScore: coerceConfidence(obj.Get("confidence_score")),
		SourcesUsed:     chunkCount,
		CitationsUsed:   coerceCitations(obj.Get("citations_used"), chunkCount),
	}
}

func coerceSummary(v gjson.Result) []string {
	var items []string
	switch {
	case v.IsArray():
		items = coerceList(v)
	case v.Type == gjson.String:
		for _, line := range strings.Split(v.Str, "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimSpace(strings.TrimLeft(line, "-*•"))
			if line != "" {
				items = append(items, line)
			}
		}
	}
	if len(items) == 0 {
		return []string{placeholderSummary}
	}
	return items
}

// coerceList stringifies and trims array elements, dropping empties.
// Non-arrays yield an empty list.
func coerceList(v gjson.Result) []string {
	items := []string{}
	if !v.IsArray() {
		return items
	}
	for _, el := range v.Array() {
		s := strings.TrimSpace(stringify(el))
		if s != "" {
			items = append(items, s)
		}
	}
	return items
}

func coerceMetrics(v gjson.Result) domain.KeyMetrics {
	metrics := domain.UnknownKeyMetrics()
	if !v.IsObject() {
		return metrics
	}
	for _, name := range domain.MetricNames() {
		m := v.Get(name)
		switch {
		case m.IsObject():
			metrics.Set(name, domain.MetricDetail{
				Value:     optionalString(m.Get("value")),
				Change:    optionalString(m.Get("change")),
				Direction: domain.ParseDirection(m.Get("direction").String()),
			})
		case m.Type == gjson.String || m.Type == gjson.Number:
			// Flat schema: one string per metric.
			metrics.Set(name, domain.MetricDetail{
				Value:     optionalString(m),
				Direction: domain.DirectionUnknown,
			})
		}
	}
	return metrics
}

func coerceConfidence(v gjson.Result) float64 {
	score := defaultConfidence
	switch v.Type {
	case gjson.Number:
		score = v.Num
	case gjson.String:
		s := strings.TrimSuffix(strings.TrimSpace(v.Str), "%")
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			score = f
		}
	}
	if math.IsNaN(score) {
		score = defaultConfidence
	}
	return math.Max(0, math.Min(100, score))
}

func coerceCitations(v gjson.Result, chunkCount int) int {
	n := chunkCount
	switch v.Type {
	case gjson.Number:
		if !math.IsNaN(v.Num) && !math.IsInf(v.Num, 0) {
			n = int(math.Max(-1, math.Min(float64(chunkCount)+1, math.Trunc(v.Num))))
		}
	case gjson.String:
		if i, err := strconv.Atoi(strings.TrimSpace(v.Str)); err == nil {
			n = i
		}
	}
	return max(0, min(n, chunkCount))
}

// optionalString returns nil for null, missing, or blank values.
func optionalString(v gjson.Result) *string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return nil
	}
	return &s
}

// stringify renders scalars as text and composite values as compact JSON.
func stringify(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	case gjson.JSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err == nil {
			return buf.String()
		}
		return v.Raw
	default:
		return v.Raw
	}
}
