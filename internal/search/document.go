// Package search provides full-text search over notes using Bleve.
//
// The index is a secondary structure: it is updated after the database
// commits and every hit is re-checked against the store before it is shown.
package search

import (
	"github.com/collabnotes/collabnotes-server/internal/domain"
)

// NoteDocument is the indexed form of a note.
type NoteDocument struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content,omitempty"` // HTML normalized to Markdown
	Tags       []string `json:"tags,omitempty"`
	OwnerID    string   `json:"owner_id"`
	Visibility string   `json:"visibility"`
	SharedWith []string `json:"shared_with,omitempty"` // user IDs
	UpdatedAt  int64    `json:"updated_at"`            // Unix millis
}

// ToMap converts the document to a map with the field names used by the mapping.
func (d *NoteDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"owner_id":   d.OwnerID,
		"visibility": d.Visibility,
		"updated_at": d.UpdatedAt,
	}

	if d.Content != "" {
		m["content"] = d.Content
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if len(d.SharedWith) > 0 {
		m["shared_with"] = d.SharedWith
	}

	return m
}

// NoteToDocument converts a domain Note to a NoteDocument.
func NoteToDocument(n *domain.Note) *NoteDocument {
	doc := &NoteDocument{
		ID:         n.ID,
		Title:      n.Title,
		Tags:       domain.TagNames(n.Tags),
		OwnerID:    n.OwnerID,
		Visibility: string(n.Visibility),
		UpdatedAt:  n.UpdatedAt.UnixMilli(),
	}

	if n.Content != nil {
		doc.Content = normalizeContent(*n.Content)
	}

	if len(n.SharedWith) > 0 {
		doc.SharedWith = make([]string, len(n.SharedWith))
		for i, u := range n.SharedWith {
			doc.SharedWith[i] = u.ID
		}
	}

	return doc
}
