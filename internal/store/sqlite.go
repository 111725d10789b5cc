package store

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// timeLayout is RFC3339 with fixed-width nanoseconds so the lexical ordering
// of stored TEXT timestamps matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// SQLiteStore implements Store over one embedded SQLite database holding
// the persona, conversation, memory and dreamstate_update record sets.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	// "values" is reserved-word-shaped and stays quoted in every statement.
	schema := `
	CREATE TABLE IF NOT EXISTS persona (
		id           TEXT PRIMARY KEY,
		traits       TEXT NOT NULL,
		"values"     TEXT NOT NULL,
		preferences  TEXT NOT NULL,
		biography    TEXT NOT NULL DEFAULT '',
		last_updated TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_persona_updated ON persona(last_updated DESC);

	CREATE TABLE IF NOT EXISTS conversations (
		id           TEXT PRIMARY KEY,
		started_at   TEXT NOT NULL,
		ended_at     TEXT,
		participants TEXT NOT NULL,
		messages     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_open ON conversations(ended_at) WHERE ended_at IS NULL;

	CREATE TABLE IF NOT EXISTS memories (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT REFERENCES conversations(id),
		summary         TEXT NOT NULL,
		importance      INTEGER NOT NULL,
		tags            TEXT NOT NULL DEFAULT '[]',
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance DESC, created_at DESC);

	CREATE TABLE IF NOT EXISTS dreamstate_updates (
		id             TEXT PRIMARY KEY,
		persona_id     TEXT NOT NULL REFERENCES persona(id),
		description    TEXT NOT NULL,
		justification  TEXT NOT NULL,
		previous_state TEXT NOT NULL,
		new_state      TEXT NOT NULL,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_updates_created ON dreamstate_updates(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}
