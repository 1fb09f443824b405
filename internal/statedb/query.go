package statedb

import (
	"database/sql"
	"fmt"
	"time"
)

// ResultRow is a query-time projection of a session, its annotation, a
// ranking score and a content snippet.
type ResultRow struct {
	SessionID  string
	CreatedAt  int64
	UpdatedAt  int64
	Cwd        string
	Title      string
	Snippet    string
	Score      float64
	Pinned     bool
	Tags       string
	Note       string
	FilePath   string
	RepoName   string
	RepoBranch string
	RepoSHA    string
}

const resultColumns = `
	s.session_id,
	s.created_at,
	s.updated_at,
	COALESCE(s.cwd, ''),
	COALESCE(s.title, ''),
	%s,
	%s AS score,
	COALESCE(u.pinned, 0) AS pinned,
	COALESCE(u.tags, ''),
	COALESCE(u.note, ''),
	COALESCE(s.file_path, ''),
	COALESCE(s.repo_name, ''),
	COALESCE(s.repo_branch, ''),
	COALESCE(s.repo_sha, '')`

// SearchParams drives a full-text query.
type SearchParams struct {
	// Match is an FTS5 MATCH expression.
	Match string
	Limit int
	Now   time.Time
	// RecencyWeight is the score penalty per day since the last update.
	RecencyWeight float64
}

// Search runs an FTS5 query. Rows are ordered pinned first, then by
// score = bm25 + days_since_update * RecencyWeight, lowest first.
func (s *StateDB) Search(p SearchParams) ([]ResultRow, error) {
	query := `SELECT ` + fmt.Sprintf(resultColumns,
		`COALESCE(snippet(session_fts, 1, '[', ']', '…', 28), '')`,
		`(bm25(session_fts) + ((? - s.updated_at) / 86400.0) * ?)`,
	) + `
		FROM session_fts
		JOIN sessions s ON s.session_id = session_fts.session_id
		LEFT JOIN user_sessions u ON u.session_id = s.session_id
		WHERE session_fts MATCH ?
		ORDER BY pinned DESC, score
		LIMIT ?`

	rows, err := s.db.Query(query, p.Now.Unix(), p.RecencyWeight, p.Match, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("statedb: search: %w", err)
	}
	return scanResults(rows)
}

// Browse lists sessions without a text query, pinned first and then most
// recently updated. The stored preview stands in for the snippet.
func (s *StateDB) Browse(limit int) ([]ResultRow, error) {
	query := `SELECT ` + fmt.Sprintf(resultColumns, `COALESCE(s.preview, '')`, `0.0`) + `
		FROM sessions s
		LEFT JOIN user_sessions u ON u.session_id = s.session_id
		ORDER BY pinned DESC, s.updated_at DESC
		LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("statedb: browse: %w", err)
	}
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]ResultRow, error) {
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		var pinned int
		if err := rows.Scan(
			&r.SessionID, &r.CreatedAt, &r.UpdatedAt, &r.Cwd, &r.Title,
			&r.Snippet, &r.Score, &pinned, &r.Tags, &r.Note,
			&r.FilePath, &r.RepoName, &r.RepoBranch, &r.RepoSHA,
		); err != nil {
			return nil, fmt.Errorf("statedb: scan result: %w", err)
		}
		r.Pinned = pinned != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("statedb: iterate results: %w", err)
	}
	return out, nil
}
