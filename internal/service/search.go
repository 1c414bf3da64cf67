package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/search"
	"github.com/collabnotes/collabnotes-server/internal/store"
)

// SearchService bridges the note index with the data store.
// The index is derived state: writes to it are best-effort and every hit is
// re-checked against the store before it is returned.
type SearchService struct {
	index  *search.NoteIndex
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service. A nil index disables
// full-text search; indexing calls become no-ops.
func NewSearchService(index *search.NoteIndex, store store.Store, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = discardLogger()
	}
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Enabled reports whether a search index is configured.
func (s *SearchService) Enabled() bool {
	return s != nil && s.index != nil
}

// IndexNote adds or replaces a note in the index. Failures are logged.
func (s *SearchService) IndexNote(note *domain.Note) {
	if !s.Enabled() || note == nil {
		return
	}
	if err := s.index.IndexNote(note); err != nil {
		s.logger.Warn("failed to index note", "note_id", note.ID, "error", err)
		return
	}
	s.logger.Debug("indexed note", "note_id", note.ID)
}

// RemoveNotes removes notes from the index. Failures are logged.
func (s *SearchService) RemoveNotes(ids ...string) {
	if !s.Enabled() || len(ids) == 0 {
		return
	}
	if err := s.index.DeleteNotes(ids); err != nil {
		s.logger.Warn("failed to remove notes from index", "count", len(ids), "error", err)
	}
}

// Search runs a query restricted to notes reader can see.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("search index not configured")
	}
	return s.index.Search(ctx, params)
}

// Reindex rebuilds the index from every note in the store.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	notes, err := s.store.ListAllNotes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list notes: %w", err)
	}
	if err := s.index.Rebuild(notes); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	s.logger.InfoContext(ctx, "search index rebuilt", "notes", len(notes))
	return len(notes), nil
}

// DocumentCount returns the number of indexed notes, or 0 when disabled.
func (s *SearchService) DocumentCount() (uint64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	return s.index.DocumentCount()
}
