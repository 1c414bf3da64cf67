// Package service provides the business logic for notes, tags, accounts and settings.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
	"github.com/collabnotes/collabnotes-server/internal/id"
	"github.com/collabnotes/collabnotes-server/internal/search"
	"github.com/collabnotes/collabnotes-server/internal/store"
)

// maxPublicTokenAttempts bounds token generation when a candidate collides.
const maxPublicTokenAttempts = 5

// PublicNotePath is the path prefix of public note URLs.
const PublicNotePath = "/public/notes/"

var errNoteNotFound = domainerrors.NotFound("Note not found")

// NoteService orchestrates note operations with access control enforcement.
type NoteService struct {
	store         store.Store
	search        *SearchService
	publicBaseURL string
	logger        *slog.Logger
	newToken      func() (string, error)
}

// NewNoteService creates a new note service.
// publicBaseURL, when set, prefixes the URLs of issued public links.
func NewNoteService(store store.Store, search *SearchService, publicBaseURL string, logger *slog.Logger) *NoteService {
	if logger == nil {
		logger = discardLogger()
	}
	return &NoteService{
		store:         store,
		search:        search,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
		newToken:      id.PublicToken,
	}
}

// NoteCreate contains the data for a new note.
type NoteCreate struct {
	Title      string            `json:"title" validate:"required,notblank,max=255"`
	Content    *string           `json:"content,omitempty"`
	Visibility domain.Visibility `json:"visibility,omitempty" validate:"omitempty,visibility"`
	Tags       []string          `json:"tags,omitempty"`
}

// NoteFilter narrows the notes returned by List.
type NoteFilter struct {
	// Search matches a case-insensitive substring of the title or of any tag name.
	Search string
	// Visibility, when set, must match exactly.
	Visibility *domain.Visibility
	// Tags must all be present on the note.
	Tags []string
}

// NoteSearchHit is a full-text match on a readable note.
type NoteSearchHit struct {
	Note       *domain.Note      `json:"note"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// NoteSearchResult is the outcome of SearchContent.
type NoteSearchResult struct {
	Query string          `json:"query"`
	Total int             `json:"total"`
	Hits  []NoteSearchHit `json:"hits"`
}

// Create creates a note owned by user.
func (s *NoteService) Create(ctx context.Context, user *domain.User, req NoteCreate) (*domain.Note, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if err := validateTagNames(req.Tags); err != nil {
		return nil, err
	}

	noteID, err := id.Generate(id.PrefixNote)
	if err != nil {
		return nil, fmt.Errorf("generate note ID: %w", err)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}

	note := &domain.Note{
		Entity:     domain.Entity{ID: noteID},
		Title:      req.Title,
		Content:    req.Content,
		Visibility: visibility,
		OwnerID:    user.ID,
	}
	note.InitTimestamps()

	if err := s.store.CreateNote(ctx, note, req.Tags); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.search.IndexNote(note)

	s.logger.InfoContext(ctx, "note created",
		"note_id", note.ID,
		"user_id", user.ID,
		"visibility", note.Visibility,
	)

	return note, nil
}

// List returns the notes user can read, most recently updated first.
func (s *NoteService) List(ctx context.Context, user *domain.User, filter NoteFilter) ([]*domain.Note, error) {
	if filter.Visibility != nil && !filter.Visibility.Valid() {
		return nil, domainerrors.ValidationWithDetails("visibility must be one of: PRIVATE SHARED PUBLIC",
			map[string]string{"visibility": "must be one of: PRIVATE SHARED PUBLIC"})
	}

	notes, err := s.store.ListNotes(ctx, store.NoteFilter{
		ReaderID:   user.ID,
		Visibility: filter.Visibility,
		Tags:       filter.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	if filter.Search == "" {
		return notes, nil
	}

	fold := cases.Fold()
	needle := fold.String(filter.Search)
	matched := make([]*domain.Note, 0, len(notes))
	for _, n := range notes {
		if matchesSearch(fold, n, needle) {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

func matchesSearch(fold cases.Caser, n *domain.Note, needle string) bool {
	if strings.Contains(fold.String(n.Title), needle) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(fold.String(t.Name), needle) {
			return true
		}
	}
	return false
}

// Get returns a note user may read.
func (s *NoteService) Get(ctx context.Context, noteID string, user *domain.User) (*domain.Note, error) {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !domain.CanRead(note, user) {
		return nil, domainerrors.Forbidden("Not enough permissions")
	}
	return note, nil
}

// Update applies patch to a note owned by user. Only supplied fields change;
// updated_at is always bumped.
func (s *NoteService) Update(ctx context.Context, noteID string, user *domain.User, patch domain.NotePatch) (*domain.Note, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	if _, err := s.getWritable(ctx, noteID, user, "Only owner can update note"); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateNote(ctx, noteID, patch, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNoteNotFound
		}
		return nil, fmt.Errorf("update note: %w", err)
	}

	s.search.IndexNote(updated)

	s.logger.InfoContext(ctx, "note updated", "note_id", noteID, "user_id", user.ID)

	return updated, nil
}

func validatePatch(patch domain.NotePatch) error {
	if patch.Title.Null {
		return domainerrors.ValidationWithDetails("title must not be null",
			map[string]string{"title": "must not be null"})
	}
	if patch.Title.HasValue() {
		if err := validate.Var("title", patch.Title.Value, "required,notblank,max=255"); err != nil {
			return err
		}
	}
	if patch.Visibility.Null {
		return domainerrors.ValidationWithDetails("visibility must not be null",
			map[string]string{"visibility": "must not be null"})
	}
	if patch.Visibility.HasValue() && !patch.Visibility.Value.Valid() {
		return domainerrors.ValidationWithDetails("visibility must be one of: PRIVATE SHARED PUBLIC",
			map[string]string{"visibility": "must be one of: PRIVATE SHARED PUBLIC"})
	}
	if patch.Tags.HasValue() {
		return validateTagNames(patch.Tags.Value)
	}
	return nil
}

// Delete removes a note owned by user with its tag and share associations.
// Tags themselves are kept.
func (s *NoteService) Delete(ctx context.Context, noteID string, user *domain.User) error {
	if _, err := s.getWritable(ctx, noteID, user, "Only owner can delete note"); err != nil {
		return err
	}

	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errNoteNotFound
		}
		return fmt.Errorf("delete note: %w", err)
	}

	s.search.RemoveNotes(noteID)

	s.logger.InfoContext(ctx, "note deleted", "note_id", noteID, "user_id", user.ID)

	return nil
}

// Share grants the user with targetEmail read access to a note owned by user.
// The first share forces visibility to SHARED; sharing again is a no-op.
func (s *NoteService) Share(ctx context.Context, noteID string, user *domain.User, targetEmail string) (*domain.Note, error) {
	note, err := s.getWritable(ctx, noteID, user, "Only owner can share note")
	if err != nil {
		return nil, err
	}

	target, err := s.userByEmail(ctx, targetEmail)
	if err != nil {
		return nil, err
	}
	if target.ID == user.ID {
		return nil, domainerrors.InvalidOperation("Cannot share with yourself")
	}

	added, err := s.store.AddNoteShare(ctx, note.ID, target.ID, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNoteNotFound
		}
		return nil, fmt.Errorf("share note: %w", err)
	}
	if !added {
		return note, nil
	}

	note, err = s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	s.search.IndexNote(note)

	s.logger.InfoContext(ctx, "note shared",
		"note_id", noteID,
		"user_id", user.ID,
		"shared_with", target.ID,
	)

	return note, nil
}

// Unshare revokes the access granted to targetEmail. Visibility is left unchanged.
func (s *NoteService) Unshare(ctx context.Context, noteID string, user *domain.User, targetEmail string) (*domain.Note, error) {
	note, err := s.getWritable(ctx, noteID, user, "Only owner can share note")
	if err != nil {
		return nil, err
	}

	target, err := s.userByEmail(ctx, targetEmail)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.RemoveNoteShare(ctx, note.ID, target.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNoteNotFound
		}
		return nil, fmt.Errorf("unshare note: %w", err)
	}
	if !removed {
		return note, nil
	}

	note, err = s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	s.search.IndexNote(note)

	s.logger.InfoContext(ctx, "note unshared",
		"note_id", noteID,
		"user_id", user.ID,
		"unshared", target.ID,
	)

	return note, nil
}

// IssuePublicLink returns the note's public link, creating a token on first use.
func (s *NoteService) IssuePublicLink(ctx context.Context, noteID string, user *domain.User) (*domain.PublicLink, error) {
	note, err := s.getWritable(ctx, noteID, user, "Only owner can generate public links")
	if err != nil {
		return nil, err
	}
	if note.HasPublicLink() {
		return s.publicLink(*note.PublicToken), nil
	}

	for range maxPublicTokenAttempts {
		candidate, err := s.newToken()
		if err != nil {
			return nil, fmt.Errorf("generate public token: %w", err)
		}

		token, err := s.store.SetPublicToken(ctx, noteID, candidate)
		if err == nil {
			if token == candidate {
				s.logger.InfoContext(ctx, "public link issued", "note_id", noteID, "user_id", user.ID)
			}
			return s.publicLink(token), nil
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNoteNotFound
		}
		if !errors.Is(err, store.ErrTokenExists) {
			return nil, fmt.Errorf("set public token: %w", err)
		}
		s.logger.WarnContext(ctx, "public token collision, retrying", "note_id", noteID)
	}

	return nil, domainerrors.Internal("could not allocate a public token")
}

// RevokePublicLink clears a note's public token. Revoking twice is a no-op.
func (s *NoteService) RevokePublicLink(ctx context.Context, noteID string, user *domain.User) error {
	note, err := s.getWritable(ctx, noteID, user, "Only owner can revoke public links")
	if err != nil {
		return err
	}
	if !note.HasPublicLink() {
		return nil
	}

	if err := s.store.ClearPublicToken(ctx, noteID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errNoteNotFound
		}
		return fmt.Errorf("clear public token: %w", err)
	}

	s.logger.InfoContext(ctx, "public link revoked", "note_id", noteID, "user_id", user.ID)

	return nil
}

// GetByPublicToken returns the note a public token points to. The token
// alone authorizes the read.
func (s *NoteService) GetByPublicToken(ctx context.Context, token string) (*domain.Note, error) {
	note, err := s.store.GetNoteByPublicToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("Note not found or not publicly accessible")
		}
		return nil, fmt.Errorf("get public note: %w", err)
	}
	return note, nil
}

// SearchContent runs a full-text query over the notes user can read.
// Without a search index it falls back to the title and tag match of List.
func (s *NoteService) SearchContent(ctx context.Context, user *domain.User, q string, limit int) (*NoteSearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, domainerrors.ValidationWithDetails("q is required", map[string]string{"q": "is required"})
	}
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	limit = min(limit, search.MaxLimit)

	if !s.search.Enabled() {
		return s.searchFallback(ctx, user, q, limit)
	}

	res, err := s.search.Search(ctx, search.SearchParams{
		Query:    q,
		ReaderID: user.ID,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}

	ids := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.ID
	}
	notes, err := s.store.GetNotesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load search hits: %w", err)
	}
	byID := make(map[string]*domain.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	result := &NoteSearchResult{Query: q, Hits: make([]NoteSearchHit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		note, ok := byID[h.ID]
		// The index can lag the store; current state decides.
		if !ok || !domain.CanRead(note, user) {
			continue
		}
		result.Hits = append(result.Hits, NoteSearchHit{
			Note:       note,
			Score:      h.Score,
			Highlights: h.Highlights,
		})
	}
	result.Total = len(result.Hits)
	return result, nil
}

func (s *NoteService) searchFallback(ctx context.Context, user *domain.User, q string, limit int) (*NoteSearchResult, error) {
	notes, err := s.List(ctx, user, NoteFilter{Search: q})
	if err != nil {
		return nil, err
	}
	if len(notes) > limit {
		notes = notes[:limit]
	}

	result := &NoteSearchResult{Query: q, Total: len(notes), Hits: make([]NoteSearchHit, len(notes))}
	for i, n := range notes {
		result.Hits[i] = NoteSearchHit{Note: n}
	}
	return result, nil
}

func (s *NoteService) getNote(ctx context.Context, noteID string) (*domain.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNoteNotFound
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// getWritable loads a note and checks that user owns it.
func (s *NoteService) getWritable(ctx context.Context, noteID string, user *domain.User, denied string) (*domain.Note, error) {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !domain.CanWrite(note, user) {
		return nil, domainerrors.Forbidden(denied)
	}
	return note, nil
}

func (s *NoteService) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *NoteService) publicLink(token string) *domain.PublicLink {
	return &domain.PublicLink{
		Token: token,
		URL:   s.publicBaseURL + PublicNotePath + token,
	}
}
