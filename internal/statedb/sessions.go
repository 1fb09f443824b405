package statedb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FileRecord is the change-detection fingerprint of one transcript file.
type FileRecord struct {
	Path      string
	MtimeNs   int64
	SizeBytes int64
	IndexedAt int64
}

// Same reports whether two fingerprints describe the same file state.
func (f FileRecord) Same(other FileRecord) bool {
	return f.MtimeNs == other.MtimeNs && f.SizeBytes == other.SizeBytes
}

// RepoInfo is repository metadata resolved from a session's cwd.
type RepoInfo struct {
	Root   string
	Name   string
	Branch string
	SHA    string
}

// SessionRow is one indexed session.
type SessionRow struct {
	SessionID  string
	CreatedAt  int64
	UpdatedAt  int64
	Cwd        string
	CLIVersion string
	FilePath   string
	Title      string
	Preview    string
	Repo       RepoInfo
}

// GetFile returns the stored fingerprint for path.
func (s *StateDB) GetFile(path string) (FileRecord, bool, error) {
	rec := FileRecord{Path: path}
	err := s.db.QueryRow(
		"SELECT mtime_ns, size_bytes, indexed_at FROM files WHERE path = ?", path,
	).Scan(&rec.MtimeNs, &rec.SizeBytes, &rec.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRecord{}, false, nil
	}
	if err != nil {
		return FileRecord{}, false, fmt.Errorf("statedb: get file: %w", err)
	}
	return rec, true, nil
}

// IndexSession writes a parsed session in one transaction: the session row is
// upserted, a default annotation is created if none exists, the full-text
// entry is replaced and the file fingerprint is upserted.
func (s *StateDB) IndexSession(row SessionRow, content string, file FileRecord, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin index: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO sessions (
			session_id, created_at, updated_at, cwd, cli_version, file_path, title, preview,
			repo_root, repo_name, repo_branch, repo_sha
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			created_at  = excluded.created_at,
			updated_at  = excluded.updated_at,
			cwd         = excluded.cwd,
			cli_version = excluded.cli_version,
			file_path   = excluded.file_path,
			title       = excluded.title,
			preview     = excluded.preview,
			repo_root   = excluded.repo_root,
			repo_name   = excluded.repo_name,
			repo_branch = excluded.repo_branch,
			repo_sha    = excluded.repo_sha
	`,
		row.SessionID, row.CreatedAt, row.UpdatedAt, row.Cwd, row.CLIVersion, row.FilePath,
		row.Title, row.Preview,
		row.Repo.Root, row.Repo.Name, row.Repo.Branch, row.Repo.SHA,
	); err != nil {
		return fmt.Errorf("statedb: upsert session: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO user_sessions (session_id, updated_at) VALUES (?, ?)",
		row.SessionID, now.Unix(),
	); err != nil {
		return fmt.Errorf("statedb: default annotation: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM session_fts WHERE session_id = ?", row.SessionID); err != nil {
		return fmt.Errorf("statedb: clear fts: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO session_fts (session_id, content) VALUES (?, ?)", row.SessionID, content,
	); err != nil {
		return fmt.Errorf("statedb: insert fts: %w", err)
	}

	if err := upsertFile(tx, file, now); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordFile upserts a fingerprint without touching any session, used for
// files that parse to no document so they are not re-read every run.
func (s *StateDB) RecordFile(file FileRecord, now time.Time) error {
	return upsertFile(s.db, file, now)
}

func upsertFile(q execQuerier, file FileRecord, now time.Time) error {
	if _, err := q.Exec(`
		INSERT INTO files (path, mtime_ns, size_bytes, indexed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime_ns   = excluded.mtime_ns,
			size_bytes = excluded.size_bytes,
			indexed_at = excluded.indexed_at
	`, file.Path, file.MtimeNs, file.SizeBytes, now.Unix()); err != nil {
		return fmt.Errorf("statedb: upsert file: %w", err)
	}
	return nil
}

// SessionDetail is a session with its annotation and transcript content.
type SessionDetail struct {
	SessionRow
	Annotation Annotation
	Content    string
}

// GetSession loads one session with annotation and content. Unknown ids
// return ErrNotFound.
func (s *StateDB) GetSession(id string) (*SessionDetail, error) {
	d := &SessionDetail{}
	var pinned int
	err := s.db.QueryRow(`
		SELECT
			s.session_id, s.created_at, s.updated_at,
			COALESCE(s.cwd, ''), COALESCE(s.cli_version, ''), s.file_path,
			COALESCE(s.title, ''), COALESCE(s.preview, ''),
			COALESCE(s.repo_root, ''), COALESCE(s.repo_name, ''),
			COALESCE(s.repo_branch, ''), COALESCE(s.repo_sha, ''),
			COALESCE(u.pinned, 0), COALESCE(u.tags, ''), COALESCE(u.note, ''),
			COALESCE(u.updated_at, 0),
			COALESCE((SELECT content FROM session_fts f WHERE f.session_id = s.session_id LIMIT 1), '')
		FROM sessions s
		LEFT JOIN user_sessions u ON u.session_id = s.session_id
		WHERE s.session_id = ?
	`, id).Scan(
		&d.SessionID, &d.CreatedAt, &d.UpdatedAt,
		&d.Cwd, &d.CLIVersion, &d.FilePath,
		&d.Title, &d.Preview,
		&d.Repo.Root, &d.Repo.Name, &d.Repo.Branch, &d.Repo.SHA,
		&pinned, &d.Annotation.Tags, &d.Annotation.Note,
		&d.Annotation.UpdatedAt,
		&d.Content,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("statedb: get session: %w", err)
	}
	d.Annotation.SessionID = d.SessionID
	d.Annotation.Pinned = pinned != 0
	return d, nil
}

