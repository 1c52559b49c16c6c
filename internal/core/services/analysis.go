package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
	"github.com/custodia-labs/finsight/internal/core/ports/driving"
	"github.com/custodia-labs/finsight/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// AnalysisService runs a request through extraction, retrieval, generation
// and normalisation.
type AnalysisService struct {
	source    driven.TextSource
	retrieval *RetrievalPipeline
	prompts   *PromptBuilder
	llm       driven.LLMService
	store     driven.AnalysisStore
	metrics   driven.Metrics
	settings  domain.PipelineSettings
	now       func() time.Time
}

// NewAnalysisService creates an analysis service.
// store and metrics are optional and may be nil.
func NewAnalysisService(
	source driven.TextSource,
	retrieval *RetrievalPipeline,
	prompts *PromptBuilder,
	llm driven.LLMService,
	store driven.AnalysisStore,
	metrics driven.Metrics,
	settings domain.PipelineSettings,
) *AnalysisService {
	if settings.TopK <= 0 {
		settings.TopK = domain.DefaultTopK
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = domain.DefaultMaxTokens
	}
	if metrics != nil {
		retrieval.SetMetrics(metrics)
	}
	return &AnalysisService{
		source:    source,
		retrieval: retrieval,
		prompts:   prompts,
		llm:       llm,
		store:     store,
		metrics:   metrics,
		settings:  settings,
		now:       time.Now,
	}
}

// Analyse processes one request end to end.
func (s *AnalysisService) Analyse(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisRecord, error) {
	started := s.now()

	rec, err := s.analyse(ctx, req)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = string(domain.ClassifyError(err))
		}
		s.metrics.IncAnalyses(outcome)
	}
	if err != nil {
		return nil, err
	}

	rec.Duration = s.now().Sub(started)
	logger.Info("Analysis %s finished in %s (%d chunks, confidence %.0f)",
		rec.ID, rec.Duration.Round(time.Millisecond), rec.ChunkCount, rec.Result.ConfidenceScore)

	if s.store != nil {
		if err := s.store.Save(ctx, rec); err != nil {
			logger.Warn("Failed to save analysis %s: %v", rec.ID, err)
		}
	}
	return rec, nil
}

func (s *AnalysisService) analyse(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisRecord, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger.Section("Extraction")
	done := s.stage(driven.StageExtract)
	doc, err := s.source.Extract(ctx, req.Kind, req.Input)
	done()
	if err != nil {
		return nil, err
	}
	logger.Debug("Extracted %d bytes from %s input %q", len(doc.Content), req.Kind, doc.Title)

	retrieved, err := s.retrieval.Begin(ctx, doc.Content, req.Query, s.settings.TopK)
	if err != nil {
		return nil, err
	}
	outcome := retrieved.Outcome

	raw, err := s.generate(ctx, req, outcome.Texts())
	if err != nil {
		retrieved.Rollback()
		return nil, err
	}
	retrieved.Commit()

	result, stage := NormalizeWithStatus(raw, len(outcome.Results))
	logger.Debug("Model output normalised via %s path", stage)
	if stage == NormalizeDegraded {
		logger.Warn("Model output was not valid JSON, returning degraded result")
		if s.metrics != nil {
			s.metrics.IncDegraded()
		}
	}

	return &domain.AnalysisRecord{
		ID:             uuid.New().String(),
		Request:        req,
		Result:         result,
		ChunkCount:     outcome.ChunkCount,
		EmbeddingModel: s.retrieval.EmbeddingModel(),
		LLMModel:       s.llm.ModelName(),
		CreatedAt:      s.now(),
	}, nil
}

// generate asks the model for the structured analysis.
func (s *AnalysisService) generate(ctx context.Context, req domain.AnalysisRequest, contexts []string) (string, error) {
	logger.Section("Generation")
	done := s.stage(driven.StageGenerate)
	defer done()

	if s.settings.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.GenerationTimeout)
		defer cancel()
	}

	messages := s.prompts.Build(req, contexts)
	raw, err := s.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   s.settings.MaxTokens,
		Temperature: s.settings.Temperature,
		JSONMode:    true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrGenerationFailure, s.llm.ModelName(), err)
	}
	logger.Debug("Model returned %d bytes", len(raw))
	return raw, nil
}

func (s *AnalysisService) stage(name string) func() {
	timed := logger.Timed(name)
	return func() {
		d := timed()
		if s.metrics != nil {
			s.metrics.ObserveStage(name, d)
		}
	}
}

// Stats returns the current pipeline state.
func (s *AnalysisService) Stats() domain.PipelineStats {
	return domain.PipelineStats{
		VectorStore:    s.retrieval.IndexStats(),
		EmbeddingModel: s.retrieval.EmbeddingModel(),
		LLMModel:       s.llm.ModelName(),
		ChunkConfig: domain.ChunkConfig{
			ChunkSize:    s.settings.ChunkSize,
			ChunkOverlap: s.settings.ChunkOverlap,
		},
		TopK: s.settings.TopK,
	}
}

// Recent returns the most recent analyses, newest first.
// Without a store there is no history and the result is empty.
func (s *AnalysisService) Recent(ctx context.Context, limit int) ([]domain.AnalysisRecord, error) {
	if s.store == nil {
		return []domain.AnalysisRecord{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.store.List(ctx, limit)
}

// Get returns a stored analysis by ID.
func (s *AnalysisService) Get(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: analysis history is disabled", domain.ErrNotFound)
	}
	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("analysis %q: %w", id, err)
	}
	return rec, err
}
