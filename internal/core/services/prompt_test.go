package services

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// mockPromptStore serves fixed templates.
type mockPromptStore struct {
	prompts map[string]string
	err     error
	reloads int
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() { m.reloads++ }

func testRequest() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		Kind:  domain.InputKindText,
		Input: "ignored",
		Query: "How did margins move?",
		Style: domain.StyleRiskAssessment,
		Focus: domain.FocusDebtAndLiquidity,
	}
}

func TestResponseSchema(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(ResponseSchema()), &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema should inline its properties")
	for _, key := range []string{
		"summary", "sentiment", "risk_factors", "opportunities",
		"key_metrics", "confidence_score", "sources_used", "citations_used",
	} {
		assert.Contains(t, props, key)
	}
}

func TestPromptBuilder_Build_WithStore(t *testing.T) {
	store := &mockPromptStore{prompts: map[string]string{
		driven.PromptAnalysisSystem: "SYSTEM %s",
		driven.PromptAnalysisUser:   "type=%s focus=%s q=%s ctx=%s growth 5%% YoY",
	}}
	b := NewPromptBuilder(store)

	msgs := b.Build(testRequest(), []string{"chunk one", "chunk two"})

	require.Len(t, msgs, 2)
	assert.Equal(t, driven.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "SYSTEM {")
	assert.Contains(t, msgs[0].Content, `"confidence_score"`)

	assert.Equal(t, driven.RoleUser, msgs[1].Role)
	assert.Equal(t,
		"type=Risk Assessment focus=Debt & Liquidity q=How did margins move? ctx=chunk one\n\n---\n\nchunk two growth 5% YoY",
		msgs[1].Content)
}

func TestPromptBuilder_Build_Fallbacks(t *testing.T) {
	tests := []struct {
		name  string
		store driven.PromptStore
	}{
		{"nil store", nil},
		{"store error", &mockPromptStore{err: errors.New("disk gone")}},
		{"missing placeholder", &mockPromptStore{prompts: map[string]string{
			driven.PromptAnalysisSystem: "no schema here",
			driven.PromptAnalysisUser:   "only %s and %s",
		}}},
		{"stray verb", &mockPromptStore{prompts: map[string]string{
			driven.PromptAnalysisSystem: "%s and %d",
			driven.PromptAnalysisUser:   "%s %s %s %s %v",
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := NewPromptBuilder(tt.store).Build(testRequest(), []string{"ctx"})

			require.Len(t, msgs, 2)
			assert.Contains(t, msgs[0].Content, "expert equity research analyst")
			assert.Contains(t, msgs[1].Content, "Analysis type: Risk Assessment")
			assert.Contains(t, msgs[1].Content, "Focus area: Debt & Liquidity")
			assert.NotContains(t, msgs[1].Content, "%!")
		})
	}
}

func TestValidTemplate(t *testing.T) {
	tests := []struct {
		tmpl string
		n    int
		want bool
	}{
		{"%s", 1, true},
		{"%s %s", 1, false},
		{"100%% sure %s", 1, true},
		{"%s %d", 1, false},
		{"no verbs", 0, true},
		{"trailing %", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			assert.Equal(t, tt.want, validTemplate(tt.tmpl, tt.n))
		})
	}
}
