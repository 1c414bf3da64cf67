package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/collabnotes/collabnotes-server/internal/config"
	"github.com/collabnotes/collabnotes-server/internal/logger"
	"github.com/collabnotes/collabnotes-server/internal/search"
	"github.com/collabnotes/collabnotes-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.NoteIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewNoteIndex(search.Options{
		Path:   cfg.Data.SearchIndexPath(),
		Logger: log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "path", cfg.Data.SearchIndexPath(), "documents", docCount)

	return &SearchIndexHandle{NoteIndex: index}, nil
}

// ProvideSearchService provides the search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.NoteIndex, storeHandle.Store, log.Logger), nil
}

// TriggerSearchReindexIfNeeded rebuilds the index in the background when it
// is empty while the store holds notes.
// Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	searchService := do.MustInvoke[*service.SearchService](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := searchService.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	notes, err := storeHandle.ListAllNotes(ctx)
	if err != nil || len(notes) == 0 {
		return
	}

	log.Info("Search index is empty but notes exist, triggering initial reindex",
		"note_count", len(notes),
	)

	go func() {
		count, err := searchService.Reindex(context.Background())
		if err != nil {
			log.WithError(err).Error("Initial search reindex failed")
			return
		}
		log.Info("Initial search reindex completed", "documents", count)
	}()
}
