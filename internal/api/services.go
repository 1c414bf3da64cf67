package api

import (
	"github.com/collabnotes/collabnotes-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth     *service.AuthService
	Notes    *service.NoteService
	Tags     *service.TagRegistry
	Settings *service.SettingsService // Profile, password, preferences, account
	Search   *service.SearchService   // Nil-safe; reports disabled when no index is open
}
