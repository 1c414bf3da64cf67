package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/store"
)

// noteColumns is the ordered list of columns selected in note queries.
// Must match the scan order in scanNote.
const noteColumns = `n.id, n.title, n.content, n.visibility, n.owner_id,
	n.public_token, n.created_at, n.updated_at`

// noteOrder is the listing order: most recently updated first, ties by insertion.
const noteOrder = ` ORDER BY n.updated_at DESC, n.seq ASC`

// hydrateBatchSize bounds the number of IDs bound into one IN clause.
const hydrateBatchSize = 500

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanNote scans a sql.Row (or sql.Rows via its Scan method) into a domain.Note.
// Tags and SharedWith are filled in by hydrateNotes.
func scanNote(scanner interface{ Scan(dest ...any) error }) (*domain.Note, error) {
	var n domain.Note

	var (
		content     sql.NullString
		visibility  string
		publicToken sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&n.ID,
		&n.Title,
		&content,
		&visibility,
		&n.OwnerID,
		&publicToken,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	n.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	n.Content = stringPtr(content)
	n.PublicToken = stringPtr(publicToken)
	n.Visibility = domain.Visibility(visibility)
	n.Tags = []*domain.Tag{}
	n.SharedWith = []domain.SharedUser{}

	return &n, nil
}

// queryNotes runs a note query and hydrates the result.
func queryNotes(ctx context.Context, q queryer, query string, args ...any) ([]*domain.Note, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var notes []*domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		notes = append(notes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := hydrateNotes(ctx, q, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// getNote fetches a single hydrated note matching the given condition.
func getNote(ctx context.Context, q queryer, where string, arg any) (*domain.Note, error) {
	n, err := scanNote(q.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes n WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := hydrateNotes(ctx, q, []*domain.Note{n}); err != nil {
		return nil, err
	}
	return n, nil
}

// hydrateNotes loads tags and shares for notes in batches.
func hydrateNotes(ctx context.Context, q queryer, notes []*domain.Note) error {
	byID := make(map[string]*domain.Note, len(notes))
	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
		ids = append(ids, n.ID)
	}

	for start := 0; start < len(ids); start += hydrateBatchSize {
		end := min(start+hydrateBatchSize, len(ids))
		batch := ids[start:end]
		args := make([]any, len(batch))
		for i, v := range batch {
			args[i] = v
		}
		in := placeholders(len(batch))

		if err := loadNoteTags(ctx, q, byID, in, args); err != nil {
			return err
		}
		if err := loadNoteShares(ctx, q, byID, in, args); err != nil {
			return err
		}
	}
	return nil
}

func loadNoteTags(ctx context.Context, q queryer, byID map[string]*domain.Note, in string, args []any) error {
	rows, err := q.QueryContext(ctx, `
		SELECT nt.note_id, t.id, t.name, t.created_at
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id IN (`+in+`)
		ORDER BY t.name ASC`, args...)
	if err != nil {
		return fmt.Errorf("load note tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID string
		var t domain.Tag
		var createdAt string
		if err := rows.Scan(&noteID, &t.ID, &t.Name, &createdAt); err != nil {
			return err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if n, ok := byID[noteID]; ok {
			n.Tags = append(n.Tags, &t)
		}
	}
	return rows.Err()
}

func loadNoteShares(ctx context.Context, q queryer, byID map[string]*domain.Note, in string, args []any) error {
	rows, err := q.QueryContext(ctx, `
		SELECT ns.note_id, u.id, u.email
		FROM note_shares ns
		JOIN users u ON u.id = ns.user_id
		WHERE ns.note_id IN (`+in+`)
		ORDER BY ns.created_at ASC, u.email ASC`, args...)
	if err != nil {
		return fmt.Errorf("load note shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID string
		var u domain.SharedUser
		if err := rows.Scan(&noteID, &u.ID, &u.Email); err != nil {
			return err
		}
		if n, ok := byID[noteID]; ok {
			n.SharedWith = append(n.SharedWith, u)
		}
	}
	return rows.Err()
}

// CreateNote inserts a note together with its tags, creating missing tags.
// On success note.Tags holds the resolved tags.
func (s *Store) CreateNote(ctx context.Context, note *domain.Note, tagNames []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, visibility, owner_id, public_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.Title,
		nullableString(note.Content),
		string(note.Visibility),
		note.OwnerID,
		nullableString(note.PublicToken),
		formatTime(note.CreatedAt),
		formatTime(note.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return store.ErrAlreadyExists
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return store.ErrNotFound.WithCause(err)
		}
		return err
	}

	tags, err := resolveTagsTx(ctx, tx, tagNames, note.CreatedAt)
	if err != nil {
		return err
	}
	if err := replaceNoteTagsTx(ctx, tx, note.ID, tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	note.Tags = tags
	if note.SharedWith == nil {
		note.SharedWith = []domain.SharedUser{}
	}
	return nil
}

// GetNote retrieves a note by ID with its tags and shares.
// Returns store.ErrNotFound if the note does not exist.
func (s *Store) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	return getNote(ctx, s.db, `n.id = ?`, id)
}

// GetNoteByPublicToken retrieves the note carrying the given public token.
// Returns store.ErrNotFound if no note has that token.
func (s *Store) GetNoteByPublicToken(ctx context.Context, token string) (*domain.Note, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	return getNote(ctx, s.db, `n.public_token = ?`, token)
}

// GetNotesByIDs retrieves notes in the order of ids, skipping missing ones.
func (s *Store) GetNotesByIDs(ctx context.Context, ids []string) ([]*domain.Note, error) {
	if len(ids) == 0 {
		return []*domain.Note{}, nil
	}

	found := make(map[string]*domain.Note, len(ids))
	for start := 0; start < len(ids); start += hydrateBatchSize {
		end := min(start+hydrateBatchSize, len(ids))
		batch := ids[start:end]
		args := make([]any, len(batch))
		for i, v := range batch {
			args[i] = v
		}
		notes, err := queryNotes(ctx, s.db,
			`SELECT `+noteColumns+` FROM notes n WHERE n.id IN (`+placeholders(len(batch))+`)`, args...)
		if err != nil {
			return nil, err
		}
		for _, n := range notes {
			found[n.ID] = n
		}
	}

	out := make([]*domain.Note, 0, len(found))
	for _, noteID := range ids {
		if n, ok := found[noteID]; ok {
			out = append(out, n)
			delete(found, noteID)
		}
	}
	return out, nil
}

// ListNotes returns the notes readable by filter.ReaderID, narrowed by
// visibility and by tags (all must match), most recently updated first.
func (s *Store) ListNotes(ctx context.Context, filter store.NoteFilter) ([]*domain.Note, error) {
	var b strings.Builder
	args := []any{filter.ReaderID, filter.ReaderID}

	b.WriteString(`SELECT ` + noteColumns + ` FROM notes n
		WHERE (n.owner_id = ?
			OR n.visibility = 'PUBLIC'
			OR EXISTS (SELECT 1 FROM note_shares s WHERE s.note_id = n.id AND s.user_id = ?))`)

	if filter.Visibility != nil {
		b.WriteString(` AND n.visibility = ?`)
		args = append(args, string(*filter.Visibility))
	}

	for _, name := range domain.UniqueTagNames(filter.Tags) {
		b.WriteString(` AND EXISTS (SELECT 1 FROM note_tags nt JOIN tags t ON t.id = nt.tag_id
			WHERE nt.note_id = n.id AND t.name = ?)`)
		args = append(args, name)
	}

	b.WriteString(noteOrder)

	notes, err := queryNotes(ctx, s.db, b.String(), args...)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []*domain.Note{}
	}
	return notes, nil
}

// ListAllNotes returns every note, most recently updated first.
func (s *Store) ListAllNotes(ctx context.Context) ([]*domain.Note, error) {
	notes, err := queryNotes(ctx, s.db, `SELECT `+noteColumns+` FROM notes n`+noteOrder)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []*domain.Note{}
	}
	return notes, nil
}

// UpdateNote applies patch to the note and sets updated_at to at.
// Only supplied fields are written, so concurrent patches touching
// different fields do not overwrite each other.
// Returns store.ErrNotFound if the note does not exist.
func (s *Store) UpdateNote(ctx context.Context, id string, patch domain.NotePatch, at time.Time) (*domain.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(at)}

	if patch.Title.HasValue() {
		sets = append(sets, "title = ?")
		args = append(args, patch.Title.Value)
	}
	if patch.Content.Present {
		sets = append(sets, "content = ?")
		if patch.Content.Null {
			args = append(args, nil)
		} else {
			args = append(args, patch.Content.Value)
		}
	}
	if patch.Visibility.HasValue() {
		sets = append(sets, "visibility = ?")
		args = append(args, string(patch.Visibility.Value))
	}
	args = append(args, id)

	result, err := tx.ExecContext(ctx,
		`UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}

	if patch.Tags.Present {
		var names []string
		if !patch.Tags.Null {
			names = patch.Tags.Value
		}
		tags, err := resolveTagsTx(ctx, tx, names, at)
		if err != nil {
			return nil, err
		}
		if err := replaceNoteTagsTx(ctx, tx, id, tags); err != nil {
			return nil, err
		}
	}

	note, err := getNote(ctx, tx, `n.id = ?`, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return note, nil
}

// DeleteNote removes a note and its tag and share associations.
// Tags themselves are kept.
// Returns store.ErrNotFound if the note does not exist.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
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
