package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/collabnotes/collabnotes-server/internal/domain"
)

// NoteIndex wraps a Bleve index of notes.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type NoteIndex struct {
	index    bleve.Index
	path     string
	inMemory bool
	logger   *slog.Logger
	mu       sync.RWMutex
}

// Options configures the search index.
type Options struct {
	Path     string       // Index directory, e.g. {data}/search.bleve
	InMemory bool         // Keep the index in memory only (Path is ignored)
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on startup drops the index so it can be rebuilt from the store.
const mappingVersion = "1"

// NewNoteIndex creates or opens a note index.
// If the existing index is corrupted or has an outdated mapping, it is
// removed and recreated empty, with DocumentCount reporting zero until rebuilt.
func NewNoteIndex(opts Options) (*NoteIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.InMemory {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &NoteIndex{index: index, inMemory: true, logger: logger}, nil
	}

	if opts.Path == "" {
		return nil, fmt.Errorf("index path is required")
	}
	indexPath := opts.Path
	versionPath := indexPath + ".version"

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil || string(existingVersion) != mappingVersion {
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		if err := os.MkdirAll(filepath.Dir(indexPath), 0o750); err != nil {
			return nil, fmt.Errorf("create index parent: %w", err)
		}
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o600); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &NoteIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *NoteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexNote adds or replaces a single note.
func (s *NoteIndex) IndexNote(n *domain.Note) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(n.ID, NoteToDocument(n).ToMap())
}

// IndexNotes indexes notes in batches.
func (s *NoteIndex) IndexNotes(notes []*domain.Note) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(notes); i += batchSize {
		end := min(i+batchSize, len(notes))

		batch := s.index.NewBatch()
		for _, n := range notes[i:end] {
			if err := batch.Index(n.ID, NoteToDocument(n).ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", n.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteNote removes a note from the index.
func (s *NoteIndex) DeleteNote(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DeleteNotes removes multiple notes from the index.
func (s *NoteIndex) DeleteNotes(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// DocumentCount returns the total number of indexed notes.
func (s *NoteIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document and replaces the index contents with notes.
//
// IMPORTANT: This acquires an exclusive lock and blocks all other operations.
func (s *NoteIndex) Rebuild(notes []*domain.Note) error {
	s.mu.Lock()
	if err := s.reset(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if err := s.IndexNotes(notes); err != nil {
		return err
	}
	s.logger.Info("rebuilt search index", "path", s.path, "notes", len(notes))
	return nil
}

// reset replaces the underlying index with an empty one. Caller holds mu.
func (s *NoteIndex) reset() error {
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	if s.inMemory {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return fmt.Errorf("create in-memory index: %w", err)
		}
		s.index = index
		return nil
	}

	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	return nil
}
