package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(id string, created time.Time) *domain.AnalysisRecord {
	revenue := "$4.2B"
	metrics := domain.UnknownKeyMetrics()
	metrics.Revenue = domain.MetricDetail{Value: &revenue, Direction: domain.DirectionUp}
	return &domain.AnalysisRecord{
		ID: id,
		Request: domain.AnalysisRequest{
			Kind:  domain.InputKindURL,
			Input: "https://example.com/10-q",
			Query: "How is revenue trending?",
			Style: domain.StyleRiskAssessment,
			Focus: domain.FocusRiskAndRevenue,
		},
		Result: domain.AnalysisResult{
			Summary:         []string{"Revenue grew"},
			Sentiment:       domain.SentimentPositive,
			RiskFactors:     []string{"FX exposure"},
			Opportunities:   []string{},
			KeyMetrics:      metrics,
			ConfidenceScore: 82,
			SourcesUsed:     4,
			CitationsUsed:   3,
		},
		ChunkCount:     12,
		EmbeddingModel: "text-embedding-3-small",
		LLMModel:       "gpt-4o-mini",
		Duration:       1500 * time.Millisecond,
		CreatedAt:      created,
	}
}

func TestNewStore(t *testing.T) {
	t.Run("creates nested directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "data", "history.db")

		store, err := NewStore(path)
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, path, store.Path())
		assert.FileExists(t, path)
		assert.NoError(t, store.db.Ping())
	})

	t.Run("default path", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		store, err := NewStore("")
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, filepath.Join(home, ".finsight", "data", "history.db"), store.Path())
	})

	t.Run("uncreatable directory", func(t *testing.T) {
		_, err := NewStore("/dev/null/finsight/history.db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "creating data directory")
	})
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	var tables int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='analyses'").Scan(&tables))
	assert.Equal(t, 1, tables)

	var mode string
	require.NoError(t, store.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	first, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, first.AnalysisStore().Save(context.Background(), testRecord("a1", time.Now())))
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	defer second.Close()

	var applied int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)

	_, err = second.AnalysisStore().Get(context.Background(), "a1")
	assert.NoError(t, err)
}

func TestStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	t.Run("applies newer versions in order and records them", func(t *testing.T) {
		fsys := fstest.MapFS{
			"003_second.up.sql":   {Data: []byte("ALTER TABLE extra ADD COLUMN note TEXT;")},
			"002_first.up.sql":    {Data: []byte("CREATE TABLE extra (id INTEGER);")},
			"002_first.down.sql":  {Data: []byte("DROP TABLE extra;")},
			"notes.up.sql":        {Data: []byte("not a migration")},
			"001_analyses.up.sql": {Data: []byte("this would fail if re-run")},
		}
		require.NoError(t, store.migrate(fsys))

		var version int
		require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
		assert.Equal(t, 3, version)
		_, err := store.db.Exec("INSERT INTO extra (id, note) VALUES (1, 'ok')")
		assert.NoError(t, err)
	})

	t.Run("failed migration is not recorded", func(t *testing.T) {
		fsys := fstest.MapFS{"004_broken.up.sql": {Data: []byte("CREATE TABL oops;")}}
		err := store.migrate(fsys)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "004_broken.up.sql")

		var version int
		require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
		assert.Equal(t, 3, version)
	})
}

func TestAnalysisStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	analyses := setupTestStore(t).AnalysisStore()
	want := testRecord("rec-1", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	debt := "$1.1B"
	want.Result.KeyMetrics.Debt = domain.MetricDetail{Value: &debt, Direction: domain.DirectionDown}

	require.NoError(t, analyses.Save(ctx, want))

	got, err := analyses.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, want.Request, got.Request)
	assert.Equal(t, want.Result, got.Result)
	assert.Equal(t, want.ChunkCount, got.ChunkCount)
	assert.Equal(t, want.EmbeddingModel, got.EmbeddingModel)
	assert.Equal(t, want.LLMModel, got.LLMModel)
	assert.Equal(t, want.Duration, got.Duration)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestAnalysisStore_GetMissing(t *testing.T) {
	_, err := setupTestStore(t).AnalysisStore().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalysisStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	analyses := setupTestStore(t).AnalysisStore()

	rec := testRecord("rec-1", time.Now())
	require.NoError(t, analyses.Save(ctx, rec))
	rec.Result.ConfidenceScore = 40
	require.NoError(t, analyses.Save(ctx, rec))

	all, err := analyses.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 40.0, all[0].Result.ConfidenceScore)
}

func TestAnalysisStore_List(t *testing.T) {
	ctx := context.Background()
	analyses := setupTestStore(t).AnalysisStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, analyses.Save(ctx, testRecord(id, base.Add(time.Duration(i)*time.Hour))))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{"newest", "middle", "oldest"}},
		{"negative means all", -5, []string{"newest", "middle", "oldest"}},
		{"limited", 2, []string{"newest", "middle"}},
		{"limit above count", 10, []string{"newest", "middle", "oldest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := analyses.List(ctx, tt.limit)
			require.NoError(t, err)

			ids := make([]string, len(got))
			for i, rec := range got {
				ids[i] = rec.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestAnalysisStore_ListEmpty(t *testing.T) {
	got, err := setupTestStore(t).AnalysisStore().List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnalysisStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	analyses := setupTestStore(t).AnalysisStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := testRecord(time.Now().Format(time.RFC3339Nano)+string(rune('a'+n)), time.Now())
			assert.NoError(t, analyses.Save(ctx, rec))
		}(i)
	}
	wg.Wait()

	all, err := analyses.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestAnalysisStore_CloseClosesStore(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	var analyses driven.AnalysisStore = store.AnalysisStore()
	require.NoError(t, analyses.Close())
	assert.Error(t, store.db.Ping())
}
