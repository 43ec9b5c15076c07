// Package sqlite provides the write-only search telemetry store. One
// record is written per retrieval call: the terms used and, per item,
// the fused score, ranks, and snippet. The core never reads these back.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.SearchTelemetry = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS search_traces (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	query_terms TEXT NOT NULL,
	items       TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_traces_session ON search_traces(session_id);
`

// Store persists search traces in a local SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the telemetry database under dataDir.
// If dataDir is empty, defaults to ~/.recall/data/telemetry.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "telemetry.db")

	// WAL mode keeps concurrent session writers from blocking each other.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Record inserts one trace.
func (s *Store) Record(ctx context.Context, trace driven.SearchTrace) error {
	terms, err := json.Marshal(trace.QueryTerms)
	if err != nil {
		return fmt.Errorf("marshal query terms: %w", err)
	}
	items, err := json.Marshal(trace.Items)
	if err != nil {
		return fmt.Errorf("marshal trace items: %w", err)
	}

	recordedAt := trace.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_traces (session_id, query_terms, items, recorded_at) VALUES (?, ?, ?, ?)`,
		trace.SessionID, string(terms), string(items), recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert search trace: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
