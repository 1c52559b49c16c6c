// Package postprocessors provides the document chunking pipeline.
package postprocessors

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
	"github.com/custodia-labs/finsight/internal/logger"
)

var (
	// errNoProcessors is returned by a pipeline with nothing to run.
	errNoProcessors = errors.New("pipeline has no processors")

	// errNoChunks is returned when the processors leave nothing to embed.
	errNoChunks = errors.New("processors produced no chunks")
)

// Pipeline chains PostProcessors and runs them in order. The first one,
// normally the chunker, receives nil chunks and creates them.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a pipeline that runs processors in the order given.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs doc through every processor. The result always holds at
// least one chunk, numbered by Position from 0 in order.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}
	if len(p.processors) == 0 {
		return nil, errNoProcessors
	}

	var chunks []domain.Chunk
	for _, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
		logger.Debug("Post-processor %s: %d chunks", processor.Name(), len(chunks))
	}

	if len(chunks) == 0 {
		return nil, errNoChunks
	}

	chunks = slices.Clone(chunks)
	for i := range chunks {
		chunks[i].Position = i
	}
	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
