// Package chunker provides a sentence-aware overlapping text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits document content into overlapping chunks, preferring
// to end each chunk on a sentence boundary.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Validate reports whether the configured size and overlap can be used.
func (p *Processor) Validate() error {
	return validate(p.chunkSize, p.overlap)
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	return Split(doc.Content, p.chunkSize, p.overlap)
}

// Split divides text into windows of chunkSize characters where consecutive
// windows share overlap characters. A window that stops short of the end of
// the text is cut just after its last ". ", "? " or "! " when that boundary
// sits in the second half of the window. Chunk content is whitespace-trimmed;
// Start and End keep the untrimmed span.
//
// Empty text yields a single empty chunk.
func Split(text string, chunkSize, overlap int) ([]domain.Chunk, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)

	step := chunkSize - overlap
	chunks := make([]domain.Chunk, 0, n/step+1)

	start := 0
	for {
		end := start + chunkSize
		if end >= n {
			chunks = append(chunks, newChunk(runes, len(chunks), start, n))
			break
		}

		// A snap that would not move the next window forward is ignored.
		if idx := lastBoundary(runes[start:end]); idx >= 0 && 2*idx >= chunkSize && idx+2 > overlap {
			end = start + idx + 2
		}

		chunks = append(chunks, newChunk(runes, len(chunks), start, end))
		start = end - overlap
	}

	return chunks, nil
}

func validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidInput, chunkSize, overlap)
	}
	return nil
}

func newChunk(runes []rune, position, start, end int) domain.Chunk {
	return domain.Chunk{
		Position: position,
		Start:    start,
		End:      end,
		Content:  strings.TrimSpace(string(runes[start:end])),
	}
}

// lastBoundary returns the index of the punctuation mark of the last
// sentence boundary in window, or -1.
func lastBoundary(window []rune) int {
	for i := len(window) - 2; i >= 0; i-- {
		if window[i+1] != ' ' {
			continue
		}
		switch window[i] {
		case '.', '?', '!':
			return i
		}
	}
	return -1
}
