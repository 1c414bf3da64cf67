package api

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
)

// authenticateRequest validates the Authorization header and returns the user.
// A user already resolved by authMiddleware is reused.
func (s *Server) authenticateRequest(ctx context.Context, authHeader string) (*domain.User, error) {
	if authHeader == "" {
		return nil, huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, huma.Error401Unauthorized("Invalid authorization header format")
	}

	if user, err := GetUser(ctx); err == nil {
		return user, nil
	}

	user, _, err := s.services.Auth.VerifyAccessToken(ctx, parts[1])
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountInactive) {
			return nil, err
		}
		return nil, huma.Error401Unauthorized("Invalid or expired token")
	}

	return user, nil
}
