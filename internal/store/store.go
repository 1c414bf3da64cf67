// Package store defines the persistence interface for the notes service.
package store

import (
	"context"
	"time"

	"github.com/collabnotes/collabnotes-server/internal/domain"
)

// Store defines the interface for all persistence operations.
//
// Every method that touches more than one row runs in a single transaction,
// so concurrent callers never observe a note without its tags or a share
// without the visibility change it implies.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch, at time.Time) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) (deletedNoteIDs []string, err error)

	// Tags
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTagByName(ctx context.Context, name string) (*domain.Tag, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)

	// Notes
	CreateNote(ctx context.Context, note *domain.Note, tagNames []string) error
	GetNote(ctx context.Context, id string) (*domain.Note, error)
	GetNoteByPublicToken(ctx context.Context, token string) (*domain.Note, error)
	GetNotesByIDs(ctx context.Context, ids []string) ([]*domain.Note, error)
	ListNotes(ctx context.Context, filter NoteFilter) ([]*domain.Note, error)
	ListAllNotes(ctx context.Context) ([]*domain.Note, error)
	UpdateNote(ctx context.Context, id string, patch domain.NotePatch, at time.Time) (*domain.Note, error)
	DeleteNote(ctx context.Context, id string) error

	// Sharing
	AddNoteShare(ctx context.Context, noteID, userID string, at time.Time) (added bool, err error)
	RemoveNoteShare(ctx context.Context, noteID, userID string) (removed bool, err error)

	// Public links
	SetPublicToken(ctx context.Context, noteID, token string) (string, error)
	ClearPublicToken(ctx context.Context, noteID string) error
}

// NoteFilter narrows ListNotes to the notes a reader may see.
type NoteFilter struct {
	// ReaderID selects notes owned by, public to, or shared with this user.
	ReaderID string
	// Visibility, when set, must match exactly.
	Visibility *domain.Visibility
	// Tags must all be present on the note.
	Tags []string
}
