package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/id"
	"github.com/collabnotes/collabnotes-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, name, created_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag
	var createdAt string

	if err := scanner.Scan(&t.ID, &t.Name, &createdAt); err != nil {
		return nil, err
	}

	var err error
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTag inserts a new tag into the database.
// Returns store.ErrAlreadyExists on duplicate name.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, created_at)
		VALUES (?, ?, ?)`,
		t.ID,
		t.Name,
		formatTime(t.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetTagByName retrieves a tag by its exact name.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

// resolveTagsTx returns the tag for every name, creating missing ones.
// Duplicate names are collapsed and the result follows first-occurrence order.
// Concurrent resolvers of the same new name converge on one row through the
// UNIQUE constraint.
func resolveTagsTx(ctx context.Context, tx *sql.Tx, names []string, now time.Time) ([]*domain.Tag, error) {
	names = domain.UniqueTagNames(names)
	tags := make([]*domain.Tag, 0, len(names))

	for _, name := range names {
		tagID, err := id.Generate(id.PrefixTag)
		if err != nil {
			return nil, fmt.Errorf("generate tag id: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO NOTHING`,
			tagID, name, formatTime(now),
		); err != nil {
			return nil, fmt.Errorf("insert tag %q: %w", name, err)
		}

		t, err := scanTag(tx.QueryRowContext(ctx,
			`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name))
		if err != nil {
			return nil, fmt.Errorf("lookup tag %q: %w", name, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// replaceNoteTagsTx sets the note's tag set to exactly tags.
func replaceNoteTagsTx(ctx context.Context, tx *sql.Tx, noteID string, tags []*domain.Tag) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("clear note tags: %w", err)
	}
	for _, t := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO note_tags (note_id, tag_id) VALUES (?, ?)`, noteID, t.ID); err != nil {
			return fmt.Errorf("insert note tag: %w", err)
		}
	}
	return nil
}
