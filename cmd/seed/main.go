// Package main seeds the database with a demo account and notes.
//
// The demo user can sign in with test@example.com / password123. Running the
// seeder again leaves an existing demo user untouched.
//
// Usage:
//
//	go run ./cmd/seed --data-path ~/CollabNotes/data
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/collabnotes/collabnotes-server/internal/auth"
	"github.com/collabnotes/collabnotes-server/internal/config"
	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
	"github.com/collabnotes/collabnotes-server/internal/logger"
	"github.com/collabnotes/collabnotes-server/internal/search"
	"github.com/collabnotes/collabnotes-server/internal/service"
	"github.com/collabnotes/collabnotes-server/internal/store/sqlite"
)

const (
	demoEmail    = "test@example.com"
	demoPassword = "password123"
	demoName     = "Test User"
)

var demoTags = []string{"important", "work", "personal"}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	if err := os.MkdirAll(cfg.Data.BasePath, 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := sqlite.Open(cfg.Data.DatabasePath(), log.Logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	index, err := search.NewNoteIndex(search.Options{
		Path:   cfg.Data.SearchIndexPath(),
		Logger: log.Logger,
	})
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}
	defer index.Close()

	// Registration here never issues tokens, so any key will do.
	key := cfg.Auth.AccessTokenKey
	if key == nil {
		if key, err = auth.LoadOrGenerateKey(cfg.Data.BasePath); err != nil {
			return err
		}
	}
	tokens, err := auth.NewTokenService(key, cfg.Auth.AccessTokenDuration)
	if err != nil {
		return err
	}

	credential := auth.NewArgon2Credential(auth.DefaultArgon2Params())
	searchService := service.NewSearchService(index, st, log.Logger)
	authService := service.NewAuthService(st, credential, tokens, log.Logger)
	tagRegistry := service.NewTagRegistry(st, log.Logger)
	noteService := service.NewNoteService(st, searchService, cfg.App.PublicBaseURL, log.Logger)

	name := demoName
	user, err := authService.Register(ctx, service.RegisterRequest{
		Email:    demoEmail,
		Password: demoPassword,
		Name:     &name,
	})
	if errors.Is(err, domainerrors.ErrConflict) {
		fmt.Printf("Demo user %s already exists, nothing to do\n", demoEmail)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}
	fmt.Printf("Created user %s (%s)\n", user.Email, user.ID)

	if _, err := tagRegistry.ResolveOrCreate(ctx, demoTags); err != nil {
		return fmt.Errorf("create tags: %w", err)
	}
	fmt.Printf("Tags ready: %v\n", demoTags)

	notes := []service.NoteCreate{
		{
			Title:      "Welcome to CollabNotes",
			Content:    ptr("<h1>Welcome!</h1><p>This is your first note. Edit it, tag it, or share it with a colleague.</p>"),
			Visibility: domain.VisibilityPrivate,
			Tags:       []string{"important"},
		},
		{
			Title:      "User Guide",
			Content:    ptr("<h2>Getting started</h2><ul><li>Create notes</li><li>Organize them with tags</li><li>Share them or publish a link</li></ul>"),
			Visibility: domain.VisibilityPublic,
			Tags:       []string{"important", "work"},
		},
	}

	for _, req := range notes {
		note, err := noteService.Create(ctx, user, req)
		if err != nil {
			return fmt.Errorf("create note %q: %w", req.Title, err)
		}
		fmt.Printf("Created note %q (%s, %s)\n", note.Title, note.ID, note.Visibility)
	}

	count, _ := searchService.DocumentCount()
	fmt.Printf("\nSeeding complete. %d notes indexed.\n", count)
	fmt.Printf("Sign in with %s / %s\n", demoEmail, demoPassword)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
