// Package statedb is the SQLite-backed session index: session metadata,
// user annotations, change-detection fingerprints and an FTS5 table over
// transcript content.
package statedb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/asheshgoplani/codex-sessions/internal/logging"
)

// SchemaVersion is stored in meta.schema_version.
const SchemaVersion = 4

// Meta keys.
const (
	MetaSchemaVersion   = "schema_version"
	MetaParserVersion   = "parser_version"
	MetaIndexStartedAt  = "last_index_started_at"
	MetaIndexFinishedAt = "last_index_finished_at"
	MetaIndexReason     = "last_index_reason"
)

// ErrNotFound is returned when a session id is not in the index.
var ErrNotFound = errors.New("session not found")

var storeLog = logging.ForComponent(logging.CompStore)

// StateDB wraps the index database. All access goes through a single
// connection, so callers never need their own locking.
type StateDB struct {
	db   *sql.DB
	path string
}

// Open creates or opens the index at dbPath and applies the schema.
func Open(dbPath string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("statedb: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("statedb: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("statedb: %s: %w", pragma, err)
		}
	}

	s := &StateDB{db: db, path: dbPath}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	storeLog.Debug("store_opened", slog.String("path", dbPath))
	return s, nil
}

// Close checkpoints the WAL and closes the database.
func (s *StateDB) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Path returns the database file path.
func (s *StateDB) Path() string {
	return s.path
}

// DB exposes the underlying handle for tests.
func (s *StateDB) DB() *sql.DB {
	return s.db
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		path       TEXT PRIMARY KEY,
		mtime_ns   INTEGER NOT NULL,
		size_bytes INTEGER NOT NULL,
		indexed_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id  TEXT PRIMARY KEY,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL,
		cwd         TEXT,
		cli_version TEXT,
		file_path   TEXT NOT NULL,
		title       TEXT,
		preview     TEXT,
		repo_root   TEXT,
		repo_name   TEXT,
		repo_branch TEXT,
		repo_sha    TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS user_sessions (
		session_id TEXT PRIMARY KEY,
		pinned     INTEGER NOT NULL DEFAULT 0,
		tags       TEXT NOT NULL DEFAULT '',
		note       TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS session_fts USING fts5(
		session_id UNINDEXED,
		content,
		tokenize = 'porter',
		prefix = '2 3 4'
	)`,
}

// Migrate creates missing tables and columns and records SchemaVersion.
func (s *StateDB) Migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statedb: create schema: %w", err)
		}
	}

	// Indexes created before preview and repo metadata existed.
	for _, col := range []string{"preview", "repo_root", "repo_name", "repo_branch", "repo_sha"} {
		if err := addColumnIfNotExists(tx, "sessions", col, "TEXT"); err != nil {
			return fmt.Errorf("statedb: add sessions.%s: %w", col, err)
		}
	}

	if err := setMeta(tx, MetaSchemaVersion, strconv.Itoa(SchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

type execQuerier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func addColumnIfNotExists(q execQuerier, table, column, definition string) error {
	rows, err := q.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             any
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = q.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

// --- Meta ---

// SetMeta stores a key/value pair in the meta table.
func (s *StateDB) SetMeta(key, value string) error {
	return setMeta(s.db, key, value)
}

func setMeta(q execQuerier, key, value string) error {
	if _, err := q.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value); err != nil {
		return fmt.Errorf("statedb: set meta %s: %w", key, err)
	}
	return nil
}

// GetMeta returns the value for key, or "" when it is not set.
func (s *StateDB) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("statedb: get meta %s: %w", key, err)
	}
	return value, nil
}

// GetMetaInt returns the meta value parsed as an integer; unset or
// non-numeric values report ok=false.
func (s *StateDB) GetMetaInt(key string) (int64, bool, error) {
	v, err := s.GetMeta(key)
	if err != nil || v == "" {
		return 0, false, err
	}
	n, perr := strconv.ParseInt(v, 10, 64)
	if perr != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// Stats summarizes the index for status output.
type Stats struct {
	Sessions int
	Files    int
	Pinned   int
}

// Stats counts indexed sessions, tracked files and pinned sessions.
func (s *StateDB) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM files),
			(SELECT COUNT(*) FROM user_sessions WHERE pinned = 1)
	`).Scan(&st.Sessions, &st.Files, &st.Pinned)
	if err != nil {
		return Stats{}, fmt.Errorf("statedb: stats: %w", err)
	}
	return st, nil
}
