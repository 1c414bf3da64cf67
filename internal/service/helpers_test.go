package service

import (
	"context"
	"crypto/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/collabnotes/collabnotes-server/internal/auth"
	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/search"
	"github.com/collabnotes/collabnotes-server/internal/store/sqlite"
)

// testServices bundles services sharing one temporary store and index.
type testServices struct {
	store    *sqlite.Store
	index    *search.NoteIndex
	auth     *AuthService
	tags     *TagRegistry
	notes    *NoteService
	settings *SettingsService
	search   *SearchService
	tokens   *auth.TokenService
}

// fastArgon2Params keeps hashing cheap in tests.
var fastArgon2Params = auth.Argon2Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func setupServices(t *testing.T) *testServices {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	index, err := search.NewNoteIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute)
	require.NoError(t, err)

	credential := auth.NewArgon2Credential(fastArgon2Params)
	searchService := NewSearchService(index, s, nil)

	return &testServices{
		store:    s,
		index:    index,
		auth:     NewAuthService(s, credential, tokens, nil),
		tags:     NewTagRegistry(s, nil),
		notes:    NewNoteService(s, searchService, "", nil),
		settings: NewSettingsService(s, credential, searchService, nil),
		search:   searchService,
		tokens:   tokens,
	}
}

// register creates an active user with password "password123".
func (ts *testServices) register(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := ts.auth.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return user
}

func (ts *testServices) createNote(t *testing.T, owner *domain.User, title string, visibility domain.Visibility, tags ...string) *domain.Note {
	t.Helper()
	note, err := ts.notes.Create(context.Background(), owner, NoteCreate{
		Title:      title,
		Visibility: visibility,
		Tags:       tags,
	})
	require.NoError(t, err)
	return note
}

func noteTitles(notes []*domain.Note) []string {
	titles := make([]string, len(notes))
	for i, n := range notes {
		titles[i] = n.Title
	}
	return titles
}

func ptr[T any](v T) *T {
	return &v
}

func deactivate(t *testing.T, ts *testServices, userID string) {
	t.Helper()
	_, err := ts.store.UpdateUser(context.Background(), userID,
		domain.UserPatch{IsActive: domain.Set(false)}, time.Now())
	require.NoError(t, err)
}
