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

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, email, name, password_hash, is_active,
	theme, language, email_notifications, browser_notifications,
	profile_picture, created_at, updated_at`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var (
		name           sql.NullString
		isActive       int
		theme          string
		language       string
		emailNotif     int
		browserNotif   int
		profilePicture sql.NullString
		createdAt      string
		updatedAt      string
	)

	err := scanner.Scan(
		&u.ID,
		&u.Email,
		&name,
		&u.PasswordHash,
		&isActive,
		&theme,
		&language,
		&emailNotif,
		&browserNotif,
		&profilePicture,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	u.Name = stringPtr(name)
	u.ProfilePicture = stringPtr(profilePicture)
	u.IsActive = isActive != 0
	u.Preferences = domain.Preferences{
		Theme:                domain.Theme(theme),
		Language:             domain.Language(language),
		EmailNotifications:   emailNotif != 0,
		BrowserNotifications: browserNotif != 0,
	}

	return &u, nil
}

// CreateUser inserts a new user into the database.
// Returns store.ErrEmailExists if the email is taken and
// store.ErrAlreadyExists if the ID is.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, email, name, password_hash, is_active,
			theme, language, email_notifications, browser_notifications,
			profile_picture, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		nullableString(user.Name),
		user.PasswordHash,
		boolToInt(user.IsActive),
		string(user.Preferences.Theme),
		string(user.Preferences.Language),
		boolToInt(user.Preferences.EmailNotifications),
		boolToInt(user.Preferences.BrowserNotifications),
		nullableString(user.ProfilePicture),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return store.ErrEmailExists
		}
		if isUniqueViolation(err, "") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail retrieves a user by exact email match.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser writes only the columns the patch supplies and returns the
// stored user. The update and the read back share one transaction.
// Returns store.ErrNotFound if the user does not exist and
// store.ErrEmailExists if the new email belongs to someone else.
func (s *Store) UpdateUser(ctx context.Context, id string, patch domain.UserPatch, at time.Time) (*domain.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(at)}

	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	nullable := func(column string, f domain.Field[string]) {
		if !f.Present {
			return
		}
		if f.Null {
			set(column, nil)
			return
		}
		set(column, f.Value)
	}

	if patch.Email.HasValue() {
		set("email", patch.Email.Value)
	}
	nullable("name", patch.Name)
	if patch.PasswordHash.HasValue() {
		set("password_hash", patch.PasswordHash.Value)
	}
	if patch.IsActive.HasValue() {
		set("is_active", boolToInt(patch.IsActive.Value))
	}
	nullable("profile_picture", patch.ProfilePicture)
	if patch.Theme.HasValue() {
		set("theme", string(patch.Theme.Value))
	}
	if patch.Language.HasValue() {
		set("language", string(patch.Language.Value))
	}
	if patch.EmailNotifications.HasValue() {
		set("email_notifications", boolToInt(patch.EmailNotifications.Value))
	}
	if patch.BrowserNotifications.HasValue() {
		set("browser_notifications", boolToInt(patch.BrowserNotifications.Value))
	}
	args = append(args, id)

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return nil, store.ErrEmailExists
		}
		return nil, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}

	user, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user, every note they own, and every share granted
// to them, in one transaction. It returns the IDs of the deleted notes.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) DeleteUser(ctx context.Context, id string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM notes WHERE owner_id = ?`, id)
	if err != nil {
		return nil, err
	}
	var noteIDs []string
	for rows.Next() {
		var noteID string
		if err := rows.Scan(&noteID); err != nil {
			rows.Close()
			return nil, err
		}
		noteIDs = append(noteIDs, noteID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stmts := []string{
		`DELETE FROM note_shares WHERE user_id = ?`,
		`DELETE FROM notes WHERE owner_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return nil, fmt.Errorf("delete user %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("user deleted", "user_id", id, "notes_removed", len(noteIDs))
	return noteIDs, nil
}
