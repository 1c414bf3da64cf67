package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
	"github.com/collabnotes/collabnotes-server/internal/id"
	"github.com/collabnotes/collabnotes-server/internal/store"
)

// MaxTagNameLength is the longest accepted tag name, in characters.
const MaxTagNameLength = 50

// maxTagCreateAttempts bounds the lookup/create loop when another writer
// creates the same tag concurrently.
const maxTagCreateAttempts = 3

// TagRegistry resolves tag names to global tags, creating missing ones.
// Tags are shared by every note and never deleted.
type TagRegistry struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagRegistry creates a new tag registry.
func NewTagRegistry(store store.Store, logger *slog.Logger) *TagRegistry {
	if logger == nil {
		logger = discardLogger()
	}
	return &TagRegistry{
		store:  store,
		logger: logger,
	}
}

// List returns every tag ordered by name.
func (r *TagRegistry) List(ctx context.Context) ([]*domain.Tag, error) {
	tags, err := r.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// ResolveOrCreate returns one tag per distinct name, in first-occurrence order.
// Names are matched exactly; missing tags are created.
func (r *TagRegistry) ResolveOrCreate(ctx context.Context, names []string) ([]*domain.Tag, error) {
	if err := validateTagNames(names); err != nil {
		return nil, err
	}

	unique := domain.UniqueTagNames(names)
	tags := make([]*domain.Tag, 0, len(unique))
	for _, name := range unique {
		tag, err := r.resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (r *TagRegistry) resolve(ctx context.Context, name string) (*domain.Tag, error) {
	for range maxTagCreateAttempts {
		tag, err := r.store.GetTagByName(ctx, name)
		if err == nil {
			return tag, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get tag %q: %w", name, err)
		}

		tagID, err := id.Generate(id.PrefixTag)
		if err != nil {
			return nil, fmt.Errorf("generate tag ID: %w", err)
		}
		tag = &domain.Tag{ID: tagID, Name: name, CreatedAt: time.Now()}

		err = r.store.CreateTag(ctx, tag)
		if err == nil {
			r.logger.InfoContext(ctx, "tag created", "tag_id", tag.ID, "name", tag.Name)
			return tag, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("create tag %q: %w", name, err)
		}
		// Lost the race: the next lookup finds the winner's row.
	}
	return nil, domainerrors.Internal("could not resolve tag " + name)
}

// validateTagNames rejects empty and overlong names.
func validateTagNames(names []string) error {
	for _, name := range names {
		if name == "" {
			return domainerrors.ValidationWithDetails("tags must not contain empty names",
				map[string]string{"tags": "must not contain empty names"})
		}
		if utf8.RuneCountInString(name) > MaxTagNameLength {
			msg := fmt.Sprintf("must not exceed %d characters", MaxTagNameLength)
			return domainerrors.ValidationWithDetails("tag "+msg,
				map[string]string{"tags": msg})
		}
	}
	return nil
}
