package statedb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Annotation is the user-owned state of a session. Indexing never modifies
// or deletes it.
type Annotation struct {
	SessionID string
	Pinned    bool
	Tags      string
	Note      string
	UpdatedAt int64
}

// GetAnnotation returns the annotation for id; a session without one reports
// the zero annotation.
func (s *StateDB) GetAnnotation(id string) (Annotation, error) {
	a := Annotation{SessionID: id}
	var pinned int
	err := s.db.QueryRow(
		"SELECT pinned, tags, note, updated_at FROM user_sessions WHERE session_id = ?", id,
	).Scan(&pinned, &a.Tags, &a.Note, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, nil
	}
	if err != nil {
		return Annotation{}, fmt.Errorf("statedb: get annotation: %w", err)
	}
	a.Pinned = pinned != 0
	return a, nil
}

// SetPinned sets the pinned flag.
func (s *StateDB) SetPinned(id string, pinned bool, now time.Time) error {
	v := 0
	if pinned {
		v = 1
	}
	return s.updateAnnotation(id, "pinned", v, now)
}

// TogglePinned flips the pinned flag and returns the new value.
func (s *StateDB) TogglePinned(id string, now time.Time) (bool, error) {
	a, err := s.GetAnnotation(id)
	if err != nil {
		return false, err
	}
	if err := s.SetPinned(id, !a.Pinned, now); err != nil {
		return false, err
	}
	return !a.Pinned, nil
}

// SetTags replaces the free-text tags.
func (s *StateDB) SetTags(id, tags string, now time.Time) error {
	return s.updateAnnotation(id, "tags", tags, now)
}

// SetNote replaces the free-text note.
func (s *StateDB) SetNote(id, note string, now time.Time) error {
	return s.updateAnnotation(id, "note", note, now)
}

// updateAnnotation writes one column, creating the annotation row if the
// session has none yet.
func (s *StateDB) updateAnnotation(id, column string, value any, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin annotation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO user_sessions (session_id, updated_at) VALUES (?, ?)", id, now.Unix(),
	); err != nil {
		return fmt.Errorf("statedb: ensure annotation: %w", err)
	}
	if _, err := tx.Exec(
		"UPDATE user_sessions SET "+column+" = ?, updated_at = ? WHERE session_id = ?",
		value, now.Unix(), id,
	); err != nil {
		return fmt.Errorf("statedb: update %s: %w", column, err)
	}
	return tx.Commit()
}
