package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
	"github.com/custodia-labs/finsight/internal/logger"
)

// contextSeparator sits between retrieved chunks in the user prompt.
const contextSeparator = "\n\n---\n\n"

// Fallback templates used when the prompt store is unavailable or a
// customised template has lost its placeholders.
const (
	fallbackSystemPrompt = `You are an expert equity research analyst.
Respond with a single valid JSON object matching this JSON schema and nothing else:
%s`

	fallbackUserPrompt = `Analysis type: %s
Focus area: %s
Question: %s

Financial document context:
%s

Return ONLY the JSON object.`
)

var (
	schemaOnce sync.Once
	schemaText string
)

// ResponseSchema returns the JSON schema of domain.AnalysisResult as indented JSON.
func ResponseSchema() string {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			DoNotReference: true,
			ExpandedStruct: true,
		}
		b, err := json.MarshalIndent(r.Reflect(&domain.AnalysisResult{}), "", "  ")
		if err != nil {
			logger.Warn("Failed to render response schema: %v", err)
			schemaText = "{}"
			return
		}
		schemaText = string(b)
	})
	return schemaText
}

// PromptBuilder renders the chat messages sent to the generation provider.
type PromptBuilder struct {
	prompts driven.PromptStore
}

// NewPromptBuilder creates a prompt builder. prompts may be nil.
func NewPromptBuilder(prompts driven.PromptStore) *PromptBuilder {
	return &PromptBuilder{prompts: prompts}
}

// Build returns the system and user messages for one analysis.
func (b *PromptBuilder) Build(req domain.AnalysisRequest, contexts []string) []driven.ChatMessage {
	system := b.template(driven.PromptAnalysisSystem, fallbackSystemPrompt, 1)
	user := b.template(driven.PromptAnalysisUser, fallbackUserPrompt, 4)

	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: fmt.Sprintf(system, ResponseSchema())},
		{Role: driven.RoleUser, Content: fmt.Sprintf(user,
			req.Style.Label(), req.Focus.Label(), req.Query, strings.Join(contexts, contextSeparator))},
	}
}

// template loads a named template, falling back when it cannot be used.
func (b *PromptBuilder) template(name, fallback string, placeholders int) string {
	if b.prompts == nil {
		return fallback
	}
	tmpl, err := b.prompts.Load(name)
	if err != nil {
		logger.Debug("Using built-in %s prompt: %v", name, err)
		return fallback
	}
	if !validTemplate(tmpl, placeholders) {
		logger.Warn("Prompt %q needs exactly %d %%s placeholders, using built-in", name, placeholders)
		return fallback
	}
	return tmpl
}

// validTemplate reports whether tmpl has exactly n %s verbs and no others.
// A literal percent sign is written %%.
func validTemplate(tmpl string, n int) bool {
	rest := strings.ReplaceAll(tmpl, "%%", "")
	if strings.Count(rest, "%s") != n {
		return false
	}
	return !strings.Contains(strings.ReplaceAll(rest, "%s", ""), "%")
}
