package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	"github.com/collabnotes/collabnotes-server/internal/domain"
)

const (
	tokenIssuer   = "collabnotes-server"
	tokenAudience = "collabnotes-client"

	// DefaultAccessTokenDuration is the validity window used when none is configured.
	DefaultAccessTokenDuration = 30 * time.Minute
)

// TokenService handles PASETO token generation and verification.
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	accessTokenDuration time.Duration
	now                 func() time.Time
}

// NewTokenService creates a token service from a 32-byte symmetric key.
func NewTokenService(key []byte, accessDuration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	if accessDuration <= 0 {
		accessDuration = DefaultAccessTokenDuration
	}

	return &TokenService{
		symmetricKey:        symmetricKey,
		accessTokenDuration: accessDuration,
		now:                 time.Now,
	}, nil
}

// GenerateAccessToken creates a PASETO v4.local access token whose subject is the user's email.
// It returns the encrypted token and its expiry.
func (s *TokenService) GenerateAccessToken(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTokenDuration)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(user.Email)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expiresAt)
	token.SetJti(uuid.NewString())

	//nolint:errcheck // Token.Set only errors on unmarshalable values.
	_ = token.Set("user_id", user.ID)
	//nolint:errcheck // Token.Set only errors on unmarshalable values.
	_ = token.Set("email", user.Email)

	return token.V4Encrypt(s.symmetricKey, nil), expiresAt, nil
}

// VerifyAccessToken decrypts and validates an access token.
// Returns the claims if valid, or an error if the token is malformed, forged or expired.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}

	return &claims, nil
}

// AccessTokenDuration returns the configured access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
