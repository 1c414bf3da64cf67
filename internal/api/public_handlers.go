package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/collabnotes/collabnotes-server/internal/domain"
)

func (s *Server) registerPublicRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getPublicNote",
		Method:      http.MethodGet,
		Path:        "/api/public/notes/{token}",
		Summary:     "Get public note",
		Description: "Returns the note a public token was issued for. No authentication required.",
		Tags:        []string{"Public"},
	}, s.handleGetPublicNote)
}

// === DTOs ===

// PublicNoteInput identifies a note by public token.
type PublicNoteInput struct {
	Token string `path:"token" doc:"Public token"`
}

// PublicNoteResponse is a note as served through a public link.
// Owner and share information are withheld.
type PublicNoteResponse struct {
	ID          string        `json:"id" doc:"Note ID"`
	Title       string        `json:"title" doc:"Title"`
	Content     *string       `json:"content" doc:"Content, possibly HTML"`
	Visibility  string        `json:"visibility" doc:"PRIVATE, SHARED or PUBLIC"`
	CreatedAt   time.Time     `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time     `json:"updated_at" doc:"Last update time"`
	Tags        []TagResponse `json:"tags" doc:"Tags"`
	PublicToken string        `json:"public_token" doc:"Public token"`
}

// PublicNoteOutput wraps the public note response for Huma.
type PublicNoteOutput struct {
	Body PublicNoteResponse
}

func newPublicNoteResponse(n *domain.Note) PublicNoteResponse {
	resp := PublicNoteResponse{
		ID:         n.ID,
		Title:      n.Title,
		Content:    n.Content,
		Visibility: string(n.Visibility),
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
		Tags:       newTagResponses(n.Tags),
	}
	if n.PublicToken != nil {
		resp.PublicToken = *n.PublicToken
	}
	return resp
}

// === Handlers ===

func (s *Server) handleGetPublicNote(ctx context.Context, input *PublicNoteInput) (*PublicNoteOutput, error) {
	note, err := s.services.Notes.GetByPublicToken(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	return &PublicNoteOutput{Body: newPublicNoteResponse(note)}, nil
}
