package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptAnalysisSystem is the system prompt for document analysis.
	// The template expects one %s placeholder for the response JSON schema.
	PromptAnalysisSystem = "analysis_system"

	// PromptAnalysisUser is the user prompt for document analysis.
	// The template expects %s placeholders for analysis type, focus area,
	// question and retrieved context, in that order.
	PromptAnalysisUser = "analysis_user"
)
