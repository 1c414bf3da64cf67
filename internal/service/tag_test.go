package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
)

func TestTagRegistry_ResolveOrCreate(t *testing.T) {
	ts := setupServices(t)
	ctx := context.Background()

	tags, err := ts.tags.ResolveOrCreate(ctx, []string{"work", "Work", "work", "home"})
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "Work", "home"}, domain.TagNames(tags))

	again, err := ts.tags.ResolveOrCreate(ctx, []string{"home", "work"})
	require.NoError(t, err)
	assert.Equal(t, tags[2].ID, again[0].ID)
	assert.Equal(t, tags[0].ID, again[1].ID)

	all, err := ts.tags.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTagRegistry_ResolveOrCreate_Empty(t *testing.T) {
	ts := setupServices(t)

	tags, err := ts.tags.ResolveOrCreate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestTagRegistry_ResolveOrCreate_Invalid(t *testing.T) {
	ts := setupServices(t)

	_, err := ts.tags.ResolveOrCreate(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.tags.ResolveOrCreate(context.Background(), []string{strings.Repeat("é", MaxTagNameLength+1)})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// Length is counted in characters, not bytes.
	_, err = ts.tags.ResolveOrCreate(context.Background(), []string{strings.Repeat("é", MaxTagNameLength)})
	assert.NoError(t, err)
}

func TestTagRegistry_ResolveOrCreate_Concurrent(t *testing.T) {
	ts := setupServices(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tags, err := ts.tags.ResolveOrCreate(ctx, []string{"race"})
			errs[i] = err
			if err == nil {
				ids[i] = tags[0].ID
			}
		}(i)
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	all, err := ts.tags.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTagRegistry_DedupProperty(t *testing.T) {
	ts := setupServices(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		names := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "B", "c", "ünï", "long name"}), 0, 12).Draw(rt, "names")

		tags, err := ts.tags.ResolveOrCreate(ctx, names)
		if err != nil {
			rt.Fatalf("resolve: %v", err)
		}

		want := domain.UniqueTagNames(names)
		got := domain.TagNames(tags)
		if len(got) != len(want) {
			rt.Fatalf("got %d tags for %d distinct names", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				rt.Fatalf("tag %d: got %q, want %q", i, got[i], want[i])
			}
		}

		// Resolving again returns the same rows.
		again, err := ts.tags.ResolveOrCreate(ctx, names)
		if err != nil {
			rt.Fatalf("resolve again: %v", err)
		}
		for i := range tags {
			if again[i].ID != tags[i].ID {
				rt.Fatalf("tag %q changed id", tags[i].Name)
			}
		}
	})
}
