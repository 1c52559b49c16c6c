package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown input kind or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Pipeline Errors.

	// ErrEmptyInput indicates the cleaned document text is too short to analyse.
	ErrEmptyInput = errors.New("document text is empty or too short")

	// ErrShapeMismatch indicates vectors and texts differ in count,
	// or a vector has the wrong dimension.
	ErrShapeMismatch = errors.New("vector/text shape mismatch")

	// ErrDimensionMismatch indicates a query vector has the wrong dimension.
	ErrDimensionMismatch = errors.New("query dimension mismatch")

	// ErrEmbeddingFailure indicates the embedding provider failed or timed out.
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrGenerationFailure indicates the generation provider failed or timed out.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrNoRelevantContext indicates retrieval returned no results.
	ErrNoRelevantContext = errors.New("no relevant context found")

	// ErrExtractionFailure indicates text could not be extracted from the input.
	ErrExtractionFailure = errors.New("text extraction failed")
)

// ErrorCategory tells a driving adapter whether a failure was caused by the caller.
type ErrorCategory string

const (
	// ErrorCategoryClient is a failure caused by the request itself.
	ErrorCategoryClient ErrorCategory = "client"
	// ErrorCategoryServer is a failure inside the pipeline or its providers.
	ErrorCategoryServer ErrorCategory = "server"
)

// ClassifyError maps an error to the category its caller should report.
func ClassifyError(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrEmptyInput),
		errors.Is(err, ErrExtractionFailure),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnsupportedType):
		return ErrorCategoryClient
	default:
		return ErrorCategoryServer
	}
}
