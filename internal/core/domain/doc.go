// Package domain defines the core business entities for finsight.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - AnalysisRequest: A document submitted with a question, style and focus
//   - Chunk: An overlapping window of document text
//   - RetrievedResult: A chunk returned by nearest-neighbour search
//   - AnalysisResult: The normalised structured analysis
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
