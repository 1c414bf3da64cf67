package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabnotes/collabnotes-server/internal/auth"
	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
)

func TestAuthService_Register_Success(t *testing.T) {
	ts := setupServices(t)
	ctx := context.Background()

	user, err := ts.auth.Register(ctx, RegisterRequest{
		Email:    "alice@example.com",
		Password: "password123",
		Name:     ptr("  Alice  "),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	require.NotNil(t, user.Name)
	assert.Equal(t, "Alice", *user.Name)
	assert.True(t, user.IsActive)
	assert.Equal(t, domain.DefaultPreferences(), user.Preferences)
	assert.NotEqual(t, "password123", user.PasswordHash)

	stored, err := ts.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, stored.Email)
	assert.Equal(t, domain.ThemeSystem, stored.Preferences.Theme)
	assert.Equal(t, domain.LanguageFrench, stored.Preferences.Language)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	ts := setupServices(t)
	ts.register(t, "alice@example.com")

	_, err := ts.auth.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "other",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestAuthService_Register_Validation(t *testing.T) {
	ts := setupServices(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing email", RegisterRequest{Password: "pw"}},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "pw"}},
		{"missing password", RegisterRequest{Email: "a@example.com"}},
		{"long password", RegisterRequest{Email: "a@example.com", Password: string(make([]byte, 1025))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.auth.Register(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestAuthService_Authenticate_IdenticalFailures(t *testing.T) {
	ts := setupServices(t)
	ts.register(t, "alice@example.com")
	ctx := context.Background()

	_, unknownErr := ts.auth.Authenticate(ctx, "nobody@example.com", "password123")
	_, wrongErr := ts.auth.Authenticate(ctx, "alice@example.com", "wrong")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.ErrorIs(t, unknownErr, domainerrors.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	var a, b *domainerrors.Error
	require.ErrorAs(t, unknownErr, &a)
	require.ErrorAs(t, wrongErr, &b)
	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, 401, a.HTTPStatus())
}

// countingCredential records how many hashes were verified.
type countingCredential struct {
	auth.Credential
	verifies int
}

func (c *countingCredential) Verify(encodedHash, password string) (bool, error) {
	c.verifies++
	return c.Credential.Verify(encodedHash, password)
}

func TestAuthService_Authenticate_UnknownEmailStillHashes(t *testing.T) {
	ts := setupServices(t)
	ctx := context.Background()
	ts.register(t, "alice@example.com")

	credential := &countingCredential{Credential: auth.NewArgon2Credential(fastArgon2Params)}
	svc := NewAuthService(ts.store, credential, ts.tokens, nil)

	_, err := svc.Authenticate(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	assert.Equal(t, 1, credential.verifies)
	assert.NotEmpty(t, svc.dummyHash)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	assert.Equal(t, 2, credential.verifies)
}

func TestAuthService_Authenticate_EmailIsCaseSensitive(t *testing.T) {
	ts := setupServices(t)
	ts.register(t, "alice@example.com")

	_, err := ts.auth.Authenticate(context.Background(), "Alice@example.com", "password123")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Authenticate_Inactive(t *testing.T) {
	ts := setupServices(t)
	ctx := context.Background()
	user := ts.register(t, "alice@example.com")

	deactivate(t, ts, user.ID)

	_, err := ts.auth.Authenticate(ctx, "alice@example.com", "password123")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrAccountInactive)

	// A wrong password on an inactive account still reads as bad credentials.
	_, err = ts.auth.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Login_AndVerify(t *testing.T) {
	ts := setupServices(t)
	ctx := context.Background()
	registered := ts.register(t, "alice@example.com")

	resp, err := ts.auth.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	assert.Equal(t, TokenTypeBearer, resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), resp.ExpiresAt, time.Minute)
	assert.Equal(t, registered.ID, resp.User.ID)

	user, claims, err := ts.auth.VerifyAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.NotEmpty(t, claims.TokenID)
}

func TestAuthService_VerifyAccessToken_Rejects(t *testing.T) {
	ts := setupServices(t)
	ctx := context.Background()
	user := ts.register(t, "alice@example.com")

	token, err := ts.auth.IssueToken(user)
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, _, err := ts.auth.VerifyAccessToken(ctx, "v4.local.garbage")
		assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	})

	t.Run("email changed", func(t *testing.T) {
		_, err := ts.settings.UpdateProfile(ctx, user.ID, ProfileUpdate{Email: ptr("alice2@example.com")})
		require.NoError(t, err)

		_, _, err = ts.auth.VerifyAccessToken(ctx, token.AccessToken)
		assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	})
}

func TestAuthService_VerifyAccessToken_Inactive(t *testing.T) {
	ts := setupServices(t)
	ctx := context.Background()
	user := ts.register(t, "alice@example.com")

	token, err := ts.auth.IssueToken(user)
	require.NoError(t, err)

	deactivate(t, ts, user.ID)

	_, _, err = ts.auth.VerifyAccessToken(ctx, token.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrAccountInactive)
}
