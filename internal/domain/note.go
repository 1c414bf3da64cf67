package domain

// Visibility controls who may read a note.
type Visibility string

// Visibility levels.
const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityShared  Visibility = "SHARED"
	VisibilityPublic  Visibility = "PUBLIC"
)

// Valid reports whether v is a known visibility level.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityShared, VisibilityPublic:
		return true
	}
	return false
}

// SharedUser identifies a user a note has been shared with.
type SharedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Note is a titled piece of content owned by exactly one user.
//
// SharedWith is only meaningful while Visibility is SHARED but is not cleared
// when visibility changes. PublicToken, when set, grants read access on its own.
type Note struct {
	Entity
	Title       string       `json:"title"`
	Content     *string      `json:"content,omitempty"`
	Visibility  Visibility   `json:"visibility"`
	OwnerID     string       `json:"owner_id"`
	Tags        []*Tag       `json:"tags"`
	SharedWith  []SharedUser `json:"shared_with"`
	PublicToken *string      `json:"public_token,omitempty"`
}

// IsSharedWith reports whether userID is in the note's shared-with set.
func (n *Note) IsSharedWith(userID string) bool {
	for _, u := range n.SharedWith {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// SharedEmails returns the emails of the users the note is shared with.
func (n *Note) SharedEmails() []string {
	emails := make([]string, len(n.SharedWith))
	for i, u := range n.SharedWith {
		emails[i] = u.Email
	}
	return emails
}

// HasPublicLink reports whether a public token has been issued.
func (n *Note) HasPublicLink() bool {
	return n.PublicToken != nil && *n.PublicToken != ""
}

// PublicLink is an issued public token and the relative URL that serves it.
type PublicLink struct {
	Token string `json:"public_token"`
	URL   string `json:"public_url"`
}
