package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/store"
)

func TestCreateAndGetTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := &domain.Tag{ID: "tag-1", Name: "work", CreatedAt: time.Now()}
	if err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	got, err := s.GetTagByName(ctx, "work")
	if err != nil {
		t.Fatalf("GetTagByName: %v", err)
	}
	if got.ID != "tag-1" {
		t.Errorf("ID: got %q, want %q", got.ID, "tag-1")
	}

	// Names are case-sensitive.
	if _, err := s.GetTagByName(ctx, "Work"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTag_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTag(ctx, &domain.Tag{ID: "tag-1", Name: "work", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	err := s.CreateTag(ctx, &domain.Tag{ID: "tag-2", Name: "work", CreatedAt: time.Now()})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestListTags_Ordered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"zeta", "alpha", "Mid"} {
		tag := &domain.Tag{ID: "tag-" + string(rune('a'+i)), Name: name, CreatedAt: time.Now()}
		if err := s.CreateTag(ctx, tag); err != nil {
			t.Fatalf("CreateTag: %v", err)
		}
	}

	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	got := domain.TagNames(tags)
	want := []string{"Mid", "alpha", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCreateNote_ConcurrentNewTagConverges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := makeTestUser("user-1", "owner@example.com")
	if err := s.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := makeTestNote("note-"+string(rune('a'+i)), owner.ID, "n")
			errs <- s.CreateNote(ctx, n, []string{"shared-tag"})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
	}

	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 1 {
		t.Errorf("expected exactly one tag row, got %d", len(tags))
	}
}
