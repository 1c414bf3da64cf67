package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/store"
)

// AddNoteShare grants userID read access to the note.
// The first grant also sets the note's visibility to SHARED and its
// updated_at to at; repeating a grant changes nothing and reports added=false.
// Returns store.ErrNotFound if the note or user does not exist.
func (s *Store) AddNoteShare(ctx context.Context, noteID, userID string, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, `SELECT 1 FROM notes WHERE id = ?`, noteID); err != nil {
		return false, err
	}
	if err := requireRow(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, userID); err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO note_shares (note_id, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(note_id, user_id) DO NOTHING`,
		noteID, userID, formatTime(at),
	)
	if err != nil {
		return false, fmt.Errorf("insert share: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE notes SET visibility = ?, updated_at = ? WHERE id = ?`,
		string(domain.VisibilityShared), formatTime(at), noteID,
	); err != nil {
		return false, fmt.Errorf("mark note shared: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// RemoveNoteShare revokes userID's shared access to the note.
// Visibility is left unchanged. Removing an absent share reports removed=false.
// Returns store.ErrNotFound if the note does not exist.
func (s *Store) RemoveNoteShare(ctx context.Context, noteID, userID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, `SELECT 1 FROM notes WHERE id = ?`, noteID); err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM note_shares WHERE note_id = ? AND user_id = ?`, noteID, userID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// requireRow returns store.ErrNotFound when query selects no row.
func requireRow(ctx context.Context, tx *sql.Tx, query string, arg any) error {
	var one int
	err := tx.QueryRowContext(ctx, query, arg).Scan(&one)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	return err
}
