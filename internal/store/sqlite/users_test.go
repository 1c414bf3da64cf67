package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/store"
)

// makeTestUser creates a domain.User with sensible defaults for testing.
func makeTestUser(id, email string) *domain.User {
	now := time.Now()
	name := "Test User"
	return &domain.User{
		Entity: domain.Entity{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        email,
		Name:         &name,
		PasswordHash: "$argon2id$v=19$m=16,t=1,p=1$c2FsdA$aGFzaA",
		IsActive:     true,
		Preferences:  domain.DefaultPreferences(),
	}
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser("user-1", "Alice@Example.com")
	user.Preferences.Theme = domain.ThemeDark
	user.Preferences.EmailNotifications = false

	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}

	if got.Email != user.Email {
		t.Errorf("Email: got %q, want %q", got.Email, user.Email)
	}
	if got.PasswordHash != user.PasswordHash {
		t.Errorf("PasswordHash: got %q, want %q", got.PasswordHash, user.PasswordHash)
	}
	if got.Name == nil || *got.Name != "Test User" {
		t.Errorf("Name: got %v, want %q", got.Name, "Test User")
	}
	if !got.IsActive {
		t.Error("IsActive: expected true")
	}
	if got.Preferences.Theme != domain.ThemeDark {
		t.Errorf("Theme: got %q, want %q", got.Preferences.Theme, domain.ThemeDark)
	}
	if got.Preferences.Language != domain.LanguageFrench {
		t.Errorf("Language: got %q, want %q", got.Preferences.Language, domain.LanguageFrench)
	}
	if got.Preferences.EmailNotifications {
		t.Error("EmailNotifications: expected false")
	}
	if !got.Preferences.BrowserNotifications {
		t.Error("BrowserNotifications: expected true")
	}
	if got.ProfilePicture != nil {
		t.Errorf("ProfilePicture: expected nil, got %q", *got.ProfilePicture)
	}
	if !got.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, user.CreatedAt)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "dup@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	err := s.CreateUser(ctx, makeTestUser("user-2", "dup@example.com"))
	if !errors.Is(err, store.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}

	// Emails are compared exactly, so a case variant is a different account.
	if err := s.CreateUser(ctx, makeTestUser("user-3", "DUP@example.com")); err != nil {
		t.Errorf("case variant should be accepted: %v", err)
	}
}

func TestCreateUser_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "a@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	err := s.CreateUser(ctx, makeTestUser("user-1", "b@example.com"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "bob@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != "user-1" {
		t.Errorf("ID: got %q, want %q", got.ID, "user-1")
	}

	if _, err := s.GetUserByEmail(ctx, "BOB@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for case variant, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser("user-1", "old@example.com")
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	pic := "https://example.com/me.png"
	at := user.UpdatedAt.Add(time.Minute)
	got, err := s.UpdateUser(ctx, "user-1", domain.UserPatch{
		Email:          domain.Set("new@example.com"),
		Name:           domain.Null[string](),
		ProfilePicture: domain.Set(pic),
		Language:       domain.Set(domain.LanguageEnglish),
	}, at)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if got.Email != "new@example.com" {
		t.Errorf("Email: got %q", got.Email)
	}
	if got.Name != nil {
		t.Errorf("Name: expected nil, got %q", *got.Name)
	}
	if got.ProfilePicture == nil || *got.ProfilePicture != pic {
		t.Errorf("ProfilePicture: got %v", got.ProfilePicture)
	}
	if got.Preferences.Language != domain.LanguageEnglish {
		t.Errorf("Language: got %q", got.Preferences.Language)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Errorf("UpdatedAt: got %v, want %v", got.UpdatedAt, at)
	}

	stored, err := s.GetUserByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if stored.ID != "user-1" {
		t.Errorf("ID: got %q, want %q", stored.ID, "user-1")
	}
}

func TestUpdateUser_WritesOnlySuppliedColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser("user-1", "a@example.com")
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Two writers working from the same snapshot touch disjoint columns.
	if _, err := s.UpdateUser(ctx, "user-1", domain.UserPatch{
		PasswordHash: domain.Set("new-hash"),
	}, time.Now()); err != nil {
		t.Fatalf("UpdateUser password: %v", err)
	}
	got, err := s.UpdateUser(ctx, "user-1", domain.UserPatch{
		Theme: domain.Set(domain.ThemeDark),
	}, time.Now())
	if err != nil {
		t.Fatalf("UpdateUser theme: %v", err)
	}

	if got.PasswordHash != "new-hash" {
		t.Errorf("PasswordHash: got %q, want %q", got.PasswordHash, "new-hash")
	}
	if got.Preferences.Theme != domain.ThemeDark {
		t.Errorf("Theme: got %q", got.Preferences.Theme)
	}
	if got.Email != user.Email || got.Name == nil || *got.Name != *user.Name {
		t.Errorf("untouched fields changed: email=%q name=%v", got.Email, got.Name)
	}
	if got.Preferences.Language != user.Preferences.Language {
		t.Errorf("Language: got %q, want %q", got.Preferences.Language, user.Preferences.Language)
	}
}

func TestUpdateUser_EmailTaken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "a@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, makeTestUser("user-2", "b@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err := s.UpdateUser(ctx, "user-2", domain.UserPatch{Email: domain.Set("a@example.com")}, time.Now())
	if !errors.Is(err, store.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateUser(context.Background(), "ghost", domain.UserPatch{IsActive: domain.Set(false)}, time.Now())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUser_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := makeTestUser("user-alice", "alice@example.com")
	bob := makeTestUser("user-bob", "bob@example.com")
	for _, u := range []*domain.User{alice, bob} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	aliceNote := makeTestNote("note-a", alice.ID, "Alice's note")
	if err := s.CreateNote(ctx, aliceNote, []string{"keep"}); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	bobNote := makeTestNote("note-b", bob.ID, "Bob's note")
	if err := s.CreateNote(ctx, bobNote, nil); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := s.AddNoteShare(ctx, bobNote.ID, alice.ID, time.Now()); err != nil {
		t.Fatalf("AddNoteShare: %v", err)
	}

	deleted, err := s.DeleteUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "note-a" {
		t.Errorf("deleted notes: got %v, want [note-a]", deleted)
	}

	if _, err := s.GetUser(ctx, alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("user should be gone, got %v", err)
	}
	if _, err := s.GetNote(ctx, "note-a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("owned note should be gone, got %v", err)
	}

	got, err := s.GetNote(ctx, "note-b")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if len(got.SharedWith) != 0 {
		t.Errorf("share to deleted user should be gone, got %v", got.SharedWith)
	}

	// Tags survive their notes.
	if _, err := s.GetTagByName(ctx, "keep"); err != nil {
		t.Errorf("tag should survive user deletion: %v", err)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.DeleteUser(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
