package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/service"
)

func (s *Server) registerNoteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createNote",
		Method:        http.MethodPost,
		Path:          "/api/notes",
		Summary:       "Create note",
		Description:   "Creates a note owned by the caller. Visibility defaults to PRIVATE.",
		Tags:          []string{"Notes"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/api/notes",
		Summary:     "List notes",
		Description: "Returns notes the caller owns, public notes and notes shared with the caller, most recently updated first",
		Tags:        []string{"Notes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchNotes",
		Method:      http.MethodGet,
		Path:        "/api/notes/search",
		Summary:     "Search notes",
		Description: "Full-text search over title, content and tags of readable notes",
		Tags:        []string{"Notes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNote",
		Method:      http.MethodGet,
		Path:        "/api/notes/{id}",
		Summary:     "Get note",
		Description: "Returns a note the caller can read",
		Tags:        []string{"Notes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateNote",
		Method:      http.MethodPut,
		Path:        "/api/notes/{id}",
		Summary:     "Update note",
		Description: "Partially updates a note. Omitted fields are unchanged; null content or tags clears them.",
		Tags:        []string{"Notes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateNote)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteNote",
		Method:        http.MethodDelete,
		Path:          "/api/notes/{id}",
		Summary:       "Delete note",
		Description:   "Deletes a note owned by the caller",
		Tags:          []string{"Notes"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "shareNote",
		Method:      http.MethodPost,
		Path:        "/api/notes/{id}/share",
		Summary:     "Share note",
		Description: "Shares a note with another user by email and makes it SHARED",
		Tags:        []string{"Sharing"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleShareNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "unshareNote",
		Method:      http.MethodDelete,
		Path:        "/api/notes/{id}/share/{email}",
		Summary:     "Unshare note",
		Description: "Removes a user from the note's shared-with set. Visibility is unchanged.",
		Tags:        []string{"Sharing"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUnshareNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "issuePublicLink",
		Method:      http.MethodPost,
		Path:        "/api/notes/{id}/public-link",
		Summary:     "Generate public link",
		Description: "Returns the note's public token, issuing one if needed",
		Tags:        []string{"Sharing"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleIssuePublicLink)

	huma.Register(s.api, huma.Operation{
		OperationID:   "revokePublicLink",
		Method:        http.MethodDelete,
		Path:          "/api/notes/{id}/public-link",
		Summary:       "Revoke public link",
		Description:   "Clears the note's public token",
		Tags:          []string{"Sharing"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRevokePublicLink)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID        string    `json:"id" doc:"Tag ID"`
	Name      string    `json:"name" doc:"Tag name"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
}

// NoteResponse contains note data in API responses.
type NoteResponse struct {
	ID          string        `json:"id" doc:"Note ID"`
	Title       string        `json:"title" doc:"Title"`
	Content     *string       `json:"content" doc:"Content, possibly HTML"`
	Visibility  string        `json:"visibility" doc:"PRIVATE, SHARED or PUBLIC"`
	OwnerID     string        `json:"owner_id" doc:"Owner user ID"`
	CreatedAt   time.Time     `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time     `json:"updated_at" doc:"Last update time"`
	Tags        []TagResponse `json:"tags" doc:"Tags"`
	SharedWith  []string      `json:"shared_with" doc:"Emails of users the note is shared with"`
	PublicToken *string       `json:"public_token" doc:"Public link token, if issued"`
}

// NoteOutput wraps the note response for Huma.
type NoteOutput struct {
	Body NoteResponse
}

// NoteListOutput wraps a list of notes for Huma.
type NoteListOutput struct {
	Body []NoteResponse
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title      string   `json:"title" doc:"Title"`
	Content    *string  `json:"content,omitempty" doc:"Content, possibly HTML"`
	Visibility string   `json:"visibility,omitempty" doc:"PRIVATE (default), SHARED or PUBLIC"`
	Tags       []string `json:"tags,omitempty" doc:"Tag names"`
}

// CreateNoteInput wraps the create note request for Huma.
type CreateNoteInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateNoteRequest
}

// ListNotesInput contains parameters for listing notes.
type ListNotesInput struct {
	Authorization string   `header:"Authorization"`
	Search        string   `query:"search" doc:"Case-insensitive match on title or tag name"`
	Visibility    string   `query:"visibility" doc:"PRIVATE, SHARED or PUBLIC"`
	Tags          []string `query:"tags,explode" doc:"Notes must carry every listed tag"`
}

// SearchNotesInput contains parameters for full-text search.
type SearchNotesInput struct {
	Authorization string `header:"Authorization"`
	Query         string `query:"q" doc:"Search query"`
	Limit         int    `query:"limit" doc:"Maximum results (default 20, max 100)"`
}

// SearchHitResponse is a single search match.
type SearchHitResponse struct {
	Note       NoteResponse      `json:"note" doc:"Matching note"`
	Score      float64           `json:"score" doc:"Relevance score"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Highlighted fragments by field"`
}

// SearchNotesResponse contains search results.
type SearchNotesResponse struct {
	Query string              `json:"query" doc:"Query as executed"`
	Total int                 `json:"total" doc:"Number of hits returned"`
	Hits  []SearchHitResponse `json:"hits" doc:"Matches, best first"`
}

// SearchNotesOutput wraps the search response for Huma.
type SearchNotesOutput struct {
	Body SearchNotesResponse
}

// NoteIDInput identifies a note.
type NoteIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Note ID"`
}

// UpdateNoteInput carries the raw patch so omitted and null fields stay distinct.
type UpdateNoteInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Note ID"`
	RawBody       []byte
}

// ShareNoteRequest is the request body for sharing a note.
type ShareNoteRequest struct {
	UserEmail string `json:"user_email" doc:"Email of the user to share with"`
}

// ShareNoteInput wraps the share request for Huma.
type ShareNoteInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Note ID"`
	Body          ShareNoteRequest
}

// UnshareNoteInput identifies a share to remove.
type UnshareNoteInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Note ID"`
	Email         string `path:"email" doc:"Email of the user to remove"`
}

// Resolve decodes the email segment when the router matched on the escaped
// path. A path without a RawPath already carries the decoded segment.
func (i *UnshareNoteInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	if u.RawPath == "" {
		return nil
	}
	email, err := url.PathUnescape(i.Email)
	if err != nil {
		return []error{&huma.ErrorDetail{
			Location: "path.email",
			Message:  "invalid escape sequence",
			Value:    i.Email,
		}}
	}
	i.Email = email
	return nil
}

// PublicLinkResponse contains an issued public link.
type PublicLinkResponse struct {
	PublicURL   string `json:"public_url" doc:"Path or URL that serves the note"`
	PublicToken string `json:"public_token" doc:"Public token"`
}

// PublicLinkOutput wraps the public link response for Huma.
type PublicLinkOutput struct {
	Body PublicLinkResponse
}

func newTagResponses(tags []*domain.Tag) []TagResponse {
	resp := make([]TagResponse, len(tags))
	for i, t := range tags {
		resp[i] = TagResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
	}
	return resp
}

func newNoteResponse(n *domain.Note) NoteResponse {
	return NoteResponse{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		Visibility:  string(n.Visibility),
		OwnerID:     n.OwnerID,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		Tags:        newTagResponses(n.Tags),
		SharedWith:  n.SharedEmails(),
		PublicToken: n.PublicToken,
	}
}

// === Handlers ===

func (s *Server) handleCreateNote(ctx context.Context, input *CreateNoteInput) (*NoteOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	note, err := s.services.Notes.Create(ctx, user, service.NoteCreate{
		Title:      input.Body.Title,
		Content:    input.Body.Content,
		Visibility: domain.Visibility(input.Body.Visibility),
		Tags:       input.Body.Tags,
	})
	if err != nil {
		return nil, err
	}

	return &NoteOutput{Body: newNoteResponse(note)}, nil
}

func (s *Server) handleListNotes(ctx context.Context, input *ListNotesInput) (*NoteListOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	filter := service.NoteFilter{
		Search: input.Search,
		Tags:   input.Tags,
	}
	if input.Visibility != "" {
		v := domain.Visibility(input.Visibility)
		filter.Visibility = &v
	}

	notes, err := s.services.Notes.List(ctx, user, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]NoteResponse, len(notes))
	for i, n := range notes {
		resp[i] = newNoteResponse(n)
	}
	return &NoteListOutput{Body: resp}, nil
}

func (s *Server) handleSearchNotes(ctx context.Context, input *SearchNotesInput) (*SearchNotesOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Notes.SearchContent(ctx, user, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHitResponse, len(result.Hits))
	for i, h := range result.Hits {
		hits[i] = SearchHitResponse{
			Note:       newNoteResponse(h.Note),
			Score:      h.Score,
			Highlights: h.Highlights,
		}
	}
	return &SearchNotesOutput{
		Body: SearchNotesResponse{Query: result.Query, Total: result.Total, Hits: hits},
	}, nil
}

func (s *Server) handleGetNote(ctx context.Context, input *NoteIDInput) (*NoteOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	note, err := s.services.Notes.Get(ctx, input.ID, user)
	if err != nil {
		return nil, err
	}

	return &NoteOutput{Body: newNoteResponse(note)}, nil
}

func (s *Server) handleUpdateNote(ctx context.Context, input *UpdateNoteInput) (*NoteOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	patch, err := decodeNotePatch(input.RawBody)
	if err != nil {
		return nil, err
	}

	note, err := s.services.Notes.Update(ctx, input.ID, user, patch)
	if err != nil {
		return nil, err
	}

	return &NoteOutput{Body: newNoteResponse(note)}, nil
}

func (s *Server) handleDeleteNote(ctx context.Context, input *NoteIDInput) (*struct{}, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Notes.Delete(ctx, input.ID, user); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleShareNote(ctx context.Context, input *ShareNoteInput) (*NoteOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	note, err := s.services.Notes.Share(ctx, input.ID, user, input.Body.UserEmail)
	if err != nil {
		return nil, err
	}

	return &NoteOutput{Body: newNoteResponse(note)}, nil
}

func (s *Server) handleUnshareNote(ctx context.Context, input *UnshareNoteInput) (*NoteOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	note, err := s.services.Notes.Unshare(ctx, input.ID, user, input.Email)
	if err != nil {
		return nil, err
	}

	return &NoteOutput{Body: newNoteResponse(note)}, nil
}

func (s *Server) handleIssuePublicLink(ctx context.Context, input *NoteIDInput) (*PublicLinkOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	link, err := s.services.Notes.IssuePublicLink(ctx, input.ID, user)
	if err != nil {
		return nil, err
	}

	return &PublicLinkOutput{
		Body: PublicLinkResponse{PublicURL: link.URL, PublicToken: link.Token},
	}, nil
}

func (s *Server) handleRevokePublicLink(ctx context.Context, input *NoteIDInput) (*struct{}, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Notes.RevokePublicLink(ctx, input.ID, user); err != nil {
		return nil, err
	}
	return nil, nil
}
