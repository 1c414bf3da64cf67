package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/users/me",
		Summary:     "Get profile",
		Description: "Returns the authenticated user's profile and preferences",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPut,
		Path:        "/api/users/profile",
		Summary:     "Update profile",
		Description: "Updates name, email or profile picture. Omitted fields are left unchanged.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePassword",
		Method:      http.MethodPut,
		Path:        "/api/users/password",
		Summary:     "Change password",
		Description: "Replaces the password after checking the current one",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePreferences",
		Method:      http.MethodPut,
		Path:        "/api/users/preferences",
		Summary:     "Update preferences",
		Description: "Updates theme, language and notification settings",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePreferences)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteAccount",
		Method:      http.MethodDelete,
		Path:        "/api/users/account",
		Summary:     "Delete account",
		Description: "Deletes the account and every note it owns. Requires the password.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteAccount)
}

// === DTOs ===

// UpdateProfileRequest is the request body for profile changes.
type UpdateProfileRequest struct {
	Name           *string `json:"name,omitempty" doc:"Display name"`
	Email          *string `json:"email,omitempty" doc:"New email address"`
	ProfilePicture *string `json:"profile_picture,omitempty" doc:"Profile picture reference; empty clears it"`
}

// UpdateProfileInput wraps the profile request for Huma.
type UpdateProfileInput struct {
	Authorization string `header:"Authorization"`
	Body          UpdateProfileRequest
}

// UpdatePasswordRequest is the request body for a password change.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" doc:"Current password"`
	NewPassword     string `json:"new_password" doc:"New password"`
}

// UpdatePasswordInput wraps the password request for Huma.
type UpdatePasswordInput struct {
	Authorization string `header:"Authorization"`
	Body          UpdatePasswordRequest
}

// UpdatePreferencesRequest is the request body for preference changes.
type UpdatePreferencesRequest struct {
	Theme                *string `json:"theme,omitempty" doc:"light, dark or system"`
	Language             *string `json:"language,omitempty" doc:"fr or en"`
	EmailNotifications   *bool   `json:"email_notifications,omitempty" doc:"Email notifications enabled"`
	BrowserNotifications *bool   `json:"browser_notifications,omitempty" doc:"Browser notifications enabled"`
}

// UpdatePreferencesInput wraps the preferences request for Huma.
type UpdatePreferencesInput struct {
	Authorization string `header:"Authorization"`
	Body          UpdatePreferencesRequest
}

// DeleteAccountRequest is the request body for account deletion.
type DeleteAccountRequest struct {
	Password string `json:"password" doc:"Current password"`
}

// DeleteAccountInput wraps the account deletion request for Huma.
type DeleteAccountInput struct {
	Authorization string `header:"Authorization"`
	Body          DeleteAccountRequest
}

// UserUpdateResponse reports a successful settings change.
type UserUpdateResponse struct {
	Message string       `json:"message" doc:"Success message"`
	User    UserResponse `json:"user" doc:"Updated user"`
}

// UserUpdateOutput wraps the settings change response for Huma.
type UserUpdateOutput struct {
	Body UserUpdateResponse
}

// === Handlers ===

func (s *Server) handleGetProfile(ctx context.Context, input *AuthenticatedInput) (*UserOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Settings.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: newUserResponse(profile)}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*UserUpdateOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	updated, err := s.services.Settings.UpdateProfile(ctx, user.ID, service.ProfileUpdate{
		Name:           input.Body.Name,
		Email:          input.Body.Email,
		ProfilePicture: input.Body.ProfilePicture,
	})
	if err != nil {
		return nil, err
	}

	return &UserUpdateOutput{
		Body: UserUpdateResponse{
			Message: "Profile updated successfully",
			User:    newUserResponse(updated),
		},
	}, nil
}

func (s *Server) handleUpdatePassword(ctx context.Context, input *UpdatePasswordInput) (*MessageOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	err = s.services.Settings.UpdatePassword(ctx, user.ID, service.PasswordUpdate{
		CurrentPassword: input.Body.CurrentPassword,
		NewPassword:     input.Body.NewPassword,
	})
	if err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Password updated successfully"}}, nil
}

func (s *Server) handleUpdatePreferences(ctx context.Context, input *UpdatePreferencesInput) (*UserUpdateOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req := service.PreferencesUpdate{
		EmailNotifications:   input.Body.EmailNotifications,
		BrowserNotifications: input.Body.BrowserNotifications,
	}
	if input.Body.Theme != nil {
		theme := domain.Theme(*input.Body.Theme)
		req.Theme = &theme
	}
	if input.Body.Language != nil {
		lang := domain.Language(*input.Body.Language)
		req.Language = &lang
	}

	updated, err := s.services.Settings.UpdatePreferences(ctx, user.ID, req)
	if err != nil {
		return nil, err
	}

	return &UserUpdateOutput{
		Body: UserUpdateResponse{
			Message: "Preferences updated successfully",
			User:    newUserResponse(updated),
		},
	}, nil
}

func (s *Server) handleDeleteAccount(ctx context.Context, input *DeleteAccountInput) (*MessageOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Settings.DeleteAccount(ctx, user.ID, input.Body.Password); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Account deleted successfully"}}, nil
}
