package services

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
	"github.com/custodia-labs/finsight/internal/logger"
)

// RetrievalConfig configures the retrieval pipeline.
type RetrievalConfig struct {
	// MinTextLength is the minimum cleaned text length in characters.
	MinTextLength int

	// EmbeddingTimeout bounds each embedding call. Zero means no extra bound.
	EmbeddingTimeout time.Duration

	// IndexName is the name the index is persisted under after each run.
	// Empty disables persistence.
	IndexName string
}

// RetrievalPipeline turns document text and a question into the most
// relevant chunks: chunk, embed, index, embed the query, search.
//
// The pipeline owns its vector index. Runs are serialised: the index is
// cleared and repopulated for each document, and restored to its previous
// contents if the run fails after the clear.
type RetrievalPipeline struct {
	mu sync.Mutex
	// revision counts index replacements. A Retrieval may only roll back or
	// persist while the index still holds its document.
	revision uint64
	chunker  driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	metrics  driven.Metrics
	cfg      RetrievalConfig
}

// NewRetrievalPipeline creates a retrieval pipeline.
func NewRetrievalPipeline(
	chunker driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	cfg RetrievalConfig,
) *RetrievalPipeline {
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = domain.DefaultMinTextLength
	}
	return &RetrievalPipeline{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
	}
}

// SetMetrics sets the optional metrics recorder.
func (p *RetrievalPipeline) SetMetrics(m driven.Metrics) {
	p.metrics = m
}

// Run retrieves up to topK chunks of documentText closest to query and
// keeps the document in the index.
//
// Errors:
//   - domain.ErrEmptyInput if the cleaned text is shorter than MinTextLength
//   - domain.ErrEmbeddingFailure if the provider fails, times out, or returns
//     the wrong number or shape of vectors
//   - domain.ErrNoRelevantContext if the search returns nothing
func (p *RetrievalPipeline) Run(
	ctx context.Context, documentText, query string, topK int,
) (*domain.RetrievalOutcome, error) {
	r, err := p.Begin(ctx, documentText, query, topK)
	if err != nil {
		return nil, err
	}
	r.Commit()
	return r.Outcome, nil
}

// Begin is Run without the commit. The index holds the new document until
// the caller calls Commit, which persists it, or Rollback, which restores
// the entries present before Begin. Errors are those of Run.
func (p *RetrievalPipeline) Begin(
	ctx context.Context, documentText, query string, topK int,
) (*Retrieval, error) {
	logger.Section("Retrieval")

	text := CleanText(documentText)
	logger.Debug("Cleaned text: %d characters", utf8.RuneCountInString(text))
	if n := utf8.RuneCountInString(text); n < p.cfg.MinTextLength {
		return nil, fmt.Errorf("%w: %d characters, need at least %d", domain.ErrEmptyInput, n, p.cfg.MinTextLength)
	}

	done := p.stage(driven.StageChunk)
	chunks, err := p.chunker.Process(ctx, &domain.Document{Content: text})
	done()
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}
	texts := domain.ChunkTexts(chunks)
	logger.Debug("Split into %d chunks", len(texts))

	done = p.stage(driven.StageEmbed)
	vectors, err := p.embedChunks(ctx, texts)
	if err != nil {
		done()
		return nil, err
	}
	queryVec, err := p.embedQuery(ctx, query)
	done()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	done = p.stage(driven.StageSearch)
	defer done()

	snap := p.index.Snapshot()
	results, err := p.replaceAndSearch(ctx, vectors, texts, queryVec, topK)
	if err != nil {
		logger.Debug("Retrieval failed, restoring %d previous index entries", len(snap.Texts))
		p.index.Reset(snap)
		p.reportSize()
		return nil, err
	}
	p.revision++

	logger.Debug("Retrieved %d of %d chunks", len(results), len(texts))
	for i, r := range results {
		logger.Debug("  #%d distance=%.4f %q", i+1, r.Distance, preview(r.Text, 60))
	}
	p.reportSize()

	return &Retrieval{
		Outcome:  &domain.RetrievalOutcome{Results: results, ChunkCount: len(texts)},
		pipeline: p,
		previous: snap,
		revision: p.revision,
	}, nil
}

// Retrieval is an uncommitted run. Exactly one of Commit or Rollback takes
// effect; later calls do nothing.
type Retrieval struct {
	Outcome *domain.RetrievalOutcome

	pipeline *RetrievalPipeline
	previous driven.IndexSnapshot
	revision uint64
	finished bool
}

// Commit persists the index if it still holds this run's document.
func (r *Retrieval) Commit() {
	p := r.pipeline
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.finished {
		return
	}
	r.finished = true
	if r.revision != p.revision {
		logger.Debug("Index replaced by a later run, skipping persist")
		return
	}
	p.persist()
}

// Rollback restores the entries present before Begin. It does nothing if a
// later run has already replaced the index.
func (r *Retrieval) Rollback() {
	p := r.pipeline
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.finished {
		return
	}
	r.finished = true
	if r.revision != p.revision {
		logger.Debug("Index replaced by a later run, nothing to roll back")
		return
	}
	logger.Debug("Rolling back index to %d previous entries", len(r.previous.Texts))
	p.index.Reset(r.previous)
	p.revision++
	p.reportSize()
}

// replaceAndSearch swaps the index contents for the new document and queries it.
// Caller holds p.mu.
func (p *RetrievalPipeline) replaceAndSearch(
	ctx context.Context, vectors [][]float32, texts []string, queryVec []float32, topK int,
) ([]domain.RetrievedResult, error) {
	p.index.Clear()
	if err := p.index.Add(vectors, texts); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}

	results, err := p.index.Search(queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}
	if len(results) == 0 {
		return nil, domain.ErrNoRelevantContext
	}
	return results, nil
}

func (p *RetrievalPipeline) embedChunks(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed %d chunks: %w", domain.ErrEmbeddingFailure, len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d chunks",
			domain.ErrEmbeddingFailure, len(vectors), len(texts))
	}
	return vectors, nil
}

func (p *RetrievalPipeline) embedQuery(ctx context.Context, query string) ([]float32, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrEmbeddingFailure, err)
	}
	return vec, nil
}

func (p *RetrievalPipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.EmbeddingTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.EmbeddingTimeout)
}

// persist saves the index when a name is configured. Failures are logged only.
func (p *RetrievalPipeline) persist() {
	if p.cfg.IndexName == "" {
		return
	}
	if err := p.index.Persist(p.cfg.IndexName); err != nil {
		logger.Warn("Failed to persist index %q: %v", p.cfg.IndexName, err)
	}
}

func (p *RetrievalPipeline) stage(name string) func() {
	timed := logger.Timed(name)
	return func() {
		d := timed()
		if p.metrics != nil {
			p.metrics.ObserveStage(name, d)
		}
	}
}

func (p *RetrievalPipeline) reportSize() {
	if p.metrics != nil {
		p.metrics.SetIndexSize(p.index.Len())
	}
}

// IndexStats returns the current index contents.
func (p *RetrievalPipeline) IndexStats() domain.IndexStats {
	n := p.index.Len()
	return domain.IndexStats{
		TotalVectors: n,
		Dimension:    p.index.Dimension(),
		TotalTexts:   n,
	}
}

// Restore loads a persisted index by name. Returns false if nothing was loaded.
func (p *RetrievalPipeline) Restore(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok := p.index.Restore(name)
	if ok {
		p.revision++
		logger.Info("Restored index %q with %d entries", name, p.index.Len())
	}
	p.reportSize()
	return ok
}

// EmbeddingModel returns the embedding model name.
func (p *RetrievalPipeline) EmbeddingModel() string {
	return p.embedder.ModelName()
}

// preview truncates s to at most n runes for log output.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
