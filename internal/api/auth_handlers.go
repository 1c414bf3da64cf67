package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	"github.com/collabnotes/collabnotes-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/auth/register",
		Summary:       "Register new user",
		Description:   "Creates an active account with default preferences",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns an access token",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/auth/me",
		Summary:     "Current user",
		Description: "Returns the account the access token belongs to",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)
}

// === DTOs ===

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Email    string  `json:"email" doc:"User email address"`
	Password string  `json:"password" doc:"User password"`
	Name     *string `json:"name,omitempty" doc:"Display name"`
}

// RegisterInput wraps the register request for Huma.
type RegisterInput struct {
	Body RegisterRequest
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" doc:"User email"`
	Password string `json:"password" doc:"User password"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// AuthenticatedInput carries only the bearer token.
type AuthenticatedInput struct {
	Authorization string `header:"Authorization"`
}

// UserResponse contains user information in API responses.
type UserResponse struct {
	ID                   string    `json:"id" doc:"User ID"`
	Email                string    `json:"email" doc:"User email"`
	Name                 *string   `json:"name" doc:"Display name"`
	ProfilePicture       *string   `json:"profile_picture" doc:"Profile picture reference"`
	Theme                string    `json:"theme" doc:"Theme: light, dark or system"`
	Language             string    `json:"language" doc:"Language: fr or en"`
	EmailNotifications   bool      `json:"email_notifications" doc:"Email notifications enabled"`
	BrowserNotifications bool      `json:"browser_notifications" doc:"Browser notifications enabled"`
	IsActive             bool      `json:"is_active" doc:"Whether the account may sign in"`
	CreatedAt            time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt            time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// TokenResponse contains an access token and the user it was issued to.
type TokenResponse struct {
	AccessToken string       `json:"access_token" doc:"PASETO access token"`
	TokenType   string       `json:"token_type" doc:"Token type (bearer)"`
	ExpiresAt   time.Time    `json:"expires_at" doc:"Token expiry"`
	User        UserResponse `json:"user" doc:"Authenticated user"`
}

// TokenOutput wraps the token response for Huma.
type TokenOutput struct {
	Body TokenResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                   u.ID,
		Email:                u.Email,
		Name:                 u.Name,
		ProfilePicture:       u.ProfilePicture,
		Theme:                string(u.Preferences.Theme),
		Language:             string(u.Preferences.Language),
		EmailNotifications:   u.Preferences.EmailNotifications,
		BrowserNotifications: u.Preferences.BrowserNotifications,
		IsActive:             u.IsActive,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*UserOutput, error) {
	user, err := s.services.Auth.Register(ctx, service.RegisterRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		Name:     input.Body.Name,
	})
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: newUserResponse(user)}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*TokenOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}

	return &TokenOutput{
		Body: TokenResponse{
			AccessToken: resp.AccessToken,
			TokenType:   resp.TokenType,
			ExpiresAt:   resp.ExpiresAt,
			User:        newUserResponse(resp.User),
		},
	}, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, input *AuthenticatedInput) (*UserOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: newUserResponse(user)}, nil
}
