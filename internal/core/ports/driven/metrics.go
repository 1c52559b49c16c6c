package driven

import "time"

// Metrics records pipeline instrumentation.
type Metrics interface {
	// ObserveStage records how long a pipeline stage took.
	ObserveStage(stage string, d time.Duration)

	// IncAnalyses counts a finished analysis by outcome ("ok" or an error category).
	IncAnalyses(outcome string)

	// IncDegraded counts a model response that fell back to the degraded result.
	IncDegraded()

	// SetIndexSize reports the current number of index entries.
	SetIndexSize(n int)
}

// Pipeline stage names used with Metrics.ObserveStage.
const (
	StageExtract  = "extract"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageSearch   = "search"
	StageGenerate = "generate"
)
