package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/collabnotes/collabnotes-server/internal/auth"
	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
	"github.com/collabnotes/collabnotes-server/internal/id"
	"github.com/collabnotes/collabnotes-server/internal/store"
	"github.com/collabnotes/collabnotes-server/internal/validation"
)

// validate is a shared validator instance for request validation.
var validate = validation.New()

// errIncorrectCredentials is returned for both an unknown email and a wrong
// password so callers cannot tell which one failed.
var errIncorrectCredentials = domainerrors.InvalidCredentials("Incorrect email or password")

// TokenTypeBearer is the token type reported to clients.
const TokenTypeBearer = "bearer"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// AuthService handles registration, login and access token verification.
type AuthService struct {
	store        store.Store
	credential   auth.Credential
	tokenService *auth.TokenService
	logger       *slog.Logger

	dummyHashOnce sync.Once
	dummyHash     string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store store.Store,
	credential auth.Credential,
	tokenService *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = discardLogger()
	}
	return &AuthService{
		store:        store,
		credential:   credential,
		tokenService: tokenService,
		logger:       logger,
	}
}

// RegisterRequest contains the data for a new account.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=1,max=1024"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token
	User *domain.User `json:"user"`
}

// Register creates an active account with default preferences.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := s.credential.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Entity:       domain.Entity{ID: userID},
		Email:        req.Email,
		Name:         normalizeName(req.Name),
		PasswordHash: passwordHash,
		IsActive:     true,
		Preferences:  domain.DefaultPreferences(),
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "email", user.Email)

	return user, nil
}

// Authenticate checks credentials and returns the matching active user.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown emails pay the same hashing cost as known ones.
			_, _ = s.credential.Verify(s.unknownUserHash(), password)
			return nil, errIncorrectCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := s.credential.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, errIncorrectCredentials
	}

	if !user.IsActive {
		return nil, domainerrors.AccountInactive("Account is inactive")
	}

	return user, nil
}

// unknownUserHash returns a hash produced with the configured cost that no
// submitted password matches.
func (s *AuthService) unknownUserHash() string {
	s.dummyHashOnce.Do(func() {
		password, err := id.PublicToken()
		if err != nil {
			s.logger.Warn("failed to prepare unknown-user hash", "error", err)
			return
		}
		hash, err := s.credential.Hash(password)
		if err != nil {
			s.logger.Warn("failed to prepare unknown-user hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// IssueToken creates an access token for user.
func (s *AuthService) IssueToken(user *domain.User) (*Token, error) {
	accessToken, expiresAt, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &Token{
		AccessToken: accessToken,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// Login authenticates a user and issues an access token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)

	return &LoginResponse{Token: *token, User: user}, nil
}

// VerifyAccessToken validates a token and returns the user it names.
// A token whose subject no longer matches an active user is rejected.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("Could not validate credentials").WithCause(err)
	}

	user, err := s.store.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("Could not validate credentials")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, domainerrors.AccountInactive("Account is inactive")
	}

	return user, claims, nil
}

// normalizeName trims a display name and treats blank as absent.
func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
