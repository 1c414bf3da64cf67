package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/collabnotes/collabnotes-server/internal/store"
)

// SetPublicToken stores token on the note unless it already has one, and
// returns the token now in effect. Two concurrent callers therefore agree
// on a single token.
// Returns store.ErrNotFound if the note does not exist and
// store.ErrTokenExists if another note already uses token.
func (s *Store) SetPublicToken(ctx context.Context, noteID, token string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE notes SET public_token = ? WHERE id = ? AND public_token IS NULL`,
		token, noteID)
	if err != nil {
		if isUniqueViolation(err, "notes.public_token") {
			return "", store.ErrTokenExists
		}
		return "", err
	}

	var current sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT public_token FROM notes WHERE id = ?`, noteID).Scan(&current)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return current.String, nil
}

// ClearPublicToken removes the note's public token. Clearing an absent
// token is not an error.
// Returns store.ErrNotFound if the note does not exist.
func (s *Store) ClearPublicToken(ctx context.Context, noteID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notes SET public_token = NULL WHERE id = ?`, noteID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
