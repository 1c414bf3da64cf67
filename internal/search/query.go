package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/collabnotes/collabnotes-server/internal/domain"
)

// Default and maximum result counts.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// SearchParams configures a search query.
type SearchParams struct {
	Query    string // User's search query
	ReaderID string // Restrict to notes this user can read (empty = no restriction)
	Limit    int
	Offset   int
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query, best match first.
func (s *NoteIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), limit, max(params.Offset, 0), false)
	searchRequest.SortBy([]string{"-_score", "-updated_at"})
	searchRequest.Fields = []string{"title"}
	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.AddField("title")

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if t, ok := hit.Fields["title"].(string); ok {
			searchHit.Title = t
		}
		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		contentMatch := bleve.NewMatchQuery(q)
		contentMatch.SetField("content")

		tagTerm := bleve.NewTermQuery(q)
		tagTerm.SetField("tags")
		tagTerm.SetBoost(2.0)

		// Typo tolerance on the title
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{titleMatch, contentMatch, tagTerm, fuzzy}

		// Prefix query for autocomplete (minimum 2 chars)
		if len([]rune(q)) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(q))
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.ReaderID != "" {
		owner := bleve.NewTermQuery(params.ReaderID)
		owner.SetField("owner_id")

		public := bleve.NewTermQuery(string(domain.VisibilityPublic))
		public.SetField("visibility")

		shared := bleve.NewTermQuery(params.ReaderID)
		shared.SetField("shared_with")

		queries = append(queries, bleve.NewDisjunctionQuery(owner, public, shared))
	}

	if len(queries) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
