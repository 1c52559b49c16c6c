package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/finsight/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Store is a SQLite database holding the analysis history.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the database at dbPath and applies pending migrations.
// If dbPath is empty, defaults to ~/.finsight/data/history.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".finsight", "data", "history.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL lets the HTTP server read history while an analysis is being written.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// AnalysisStore returns a driven.AnalysisStore backed by this store.
// Closing it closes the store.
func (s *Store) AnalysisStore() driven.AnalysisStore {
	return &analysisStore{store: s}
}

// migrate applies every NNN_name.up.sql newer than the recorded version,
// each in its own transaction together with its version row.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_analyses.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		version, time.Now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Analysis Store ====================

// analysisStore implements driven.AnalysisStore.
type analysisStore struct {
	store *Store
}

var _ driven.AnalysisStore = (*analysisStore)(nil)

const analysisColumns = `id, input_kind, input, query, analysis_type, focus_area,
	result, chunk_count, embedding_model, llm_model, duration_ms, created_at`

// Save stores a completed analysis, replacing any record with the same ID.
func (s *analysisStore) Save(ctx context.Context, rec *domain.AnalysisRecord) error {
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshalling result: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			result = excluded.result,
			chunk_count = excluded.chunk_count,
			duration_ms = excluded.duration_ms
	`, rec.ID, string(rec.Request.Kind), rec.Request.Input, rec.Request.Query,
		string(rec.Request.Style), string(rec.Request.Focus), string(result),
		rec.ChunkCount, rec.EmbeddingModel, rec.LLMModel,
		rec.Duration.Milliseconds(), createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	return nil
}

// Get retrieves an analysis by ID.
func (s *analysisStore) Get(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = ?`, id)

	rec, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}
	return rec, nil
}

// List returns the most recent analyses, newest first. limit <= 0 returns all.
func (s *analysisStore) List(ctx context.Context, limit int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var records []domain.AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *analysisStore) Close() error {
	return s.store.Close()
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*domain.AnalysisRecord, error) {
	var (
		rec                           domain.AnalysisRecord
		kind, style, focus, result    string
		durationMillis, createdAtNano int64
	)

	err := row.Scan(&rec.ID, &kind, &rec.Request.Input, &rec.Request.Query, &style, &focus,
		&result, &rec.ChunkCount, &rec.EmbeddingModel, &rec.LLMModel, &durationMillis, &createdAtNano)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
		return nil, fmt.Errorf("decoding result of %s: %w", rec.ID, err)
	}
	rec.Request.Kind = domain.InputKind(kind)
	rec.Request.Style = domain.AnalysisStyle(style)
	rec.Request.Focus = domain.FocusArea(focus)
	rec.Duration = time.Duration(durationMillis) * time.Millisecond
	rec.CreatedAt = time.Unix(0, createdAtNano)

	return &rec, nil
}
