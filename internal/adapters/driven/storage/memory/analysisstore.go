package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Ensure AnalysisStore implements the interface.
var _ driven.AnalysisStore = (*AnalysisStore)(nil)

// AnalysisStore is an in-memory implementation of driven.AnalysisStore.
// Used when history is disabled on disk and in tests.
type AnalysisStore struct {
	mu      sync.RWMutex
	records map[string]domain.AnalysisRecord
	max     int
}

// NewAnalysisStore creates a new in-memory analysis store holding at most
// max records. The oldest record is evicted when full. max <= 0 means unbounded.
func NewAnalysisStore(max int) *AnalysisStore {
	return &AnalysisStore{
		records: make(map[string]domain.AnalysisRecord),
		max:     max,
	}
}

// Save stores a completed analysis.
func (s *AnalysisStore) Save(_ context.Context, rec *domain.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec
	if s.max > 0 && len(s.records) > s.max {
		s.evictOldest()
	}
	return nil
}

// Get retrieves an analysis by ID.
func (s *AnalysisStore) Get(_ context.Context, id string) (*domain.AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// List returns the most recent analyses, newest first.
func (s *AnalysisStore) List(_ context.Context, limit int) ([]domain.AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AnalysisRecord, 0, len(s.records))
	for _, rec := range s.records {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close releases resources (no-op for memory store).
func (s *AnalysisStore) Close() error {
	return nil
}

// evictOldest removes the record with the earliest CreatedAt. Caller holds the lock.
func (s *AnalysisStore) evictOldest() {
	var oldestID string
	var oldest domain.AnalysisRecord
	for id, rec := range s.records {
		if oldestID == "" || rec.CreatedAt.Before(oldest.CreatedAt) {
			oldestID, oldest = id, rec
		}
	}
	delete(s.records, oldestID)
}
