// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for an analysis to run:
//
//   - TextSource: Turns a pdf, url or text input into plain text
//   - PostProcessor: Splits document text into chunks
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - VectorIndex: Exact nearest-neighbour storage and search
//   - LLMService: Generates the structured analysis
//   - ConfigStore: Application configuration
//   - PromptStore: Prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - AnalysisStore: Analysis history. Without it, history is not recorded.
//   - Metrics: Pipeline instrumentation. Without it, nothing is recorded.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
