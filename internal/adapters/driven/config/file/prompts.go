package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// Files are only created on first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAnalysisSystem: `You are an expert equity research analyst.
You will receive:
- A short description of the desired analysis type and focus area
- A user question
- A set of retrieved context chunks from financial documents

You MUST respond with a single valid JSON object that follows this JSON schema:
%s

Rules:
- summary is a list of short bullet-point strings (2 to 6 items).
- Align the style and emphasis of the analysis with the analysis type and focus area.
- Extract actual numbers and year-over-year or quarter-over-quarter changes when available.
- If a metric is mentioned but no explicit change is stated, set direction from qualitative language (e.g. "strong growth" means "up") and leave change null.
- If a metric is not mentioned at all, set its value and change to null and its direction to "unknown".
- Use "unknown" for direction when the trend is unclear.
- confidence_score is between 0 and 100 and reflects the quality and amount of available data.
- citations_used is the number of distinct context chunks you actually relied on.
- Do NOT include any text outside of the JSON object.`,

	driven.PromptAnalysisUser: `Analysis configuration:
- analysis_type: %s
- focus_area: %s
- user_query: %s

Financial document context:
%s

Return ONLY the JSON object that follows the specified schema.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.finsight/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".finsight", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Falls back to the embedded default if the file cannot be read.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Keep the first cached value if another goroutine raced us.
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# Finsight Prompts

This directory contains the prompts sent to the generation model.

## Files

- ` + "`analysis_system.txt`" + ` - Instructions and the response JSON schema
- ` + "`analysis_user.txt`" + ` - The analysis request and retrieved context

## Customisation

Edit either file to change how documents are analysed. A running
` + "`finsight serve`" + ` picks up changes without a restart.

## Format Placeholders

Prompts use Go fmt placeholders:
- ` + "`analysis_system.txt`" + ` needs one ` + "`%s`" + ` for the JSON schema
- ` + "`analysis_user.txt`" + ` needs four: analysis type, focus area, question and context

Write a literal percent sign as ` + "`%%`" + `. A file with the wrong placeholders
is ignored and the built-in prompt is used instead.
`
	return os.WriteFile(path, []byte(content), 0600)
}
