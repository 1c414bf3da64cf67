package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabnotes/collabnotes-server/internal/domain"
)

// fastParams keeps hashing cheap in tests.
var fastParams = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestArgon2Credential_HashAndVerify(t *testing.T) {
	cred := NewArgon2Credential(fastParams)

	hash, err := cred.Hash("password123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := cred.Verify(hash, "password123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cred.Verify(hash, "password124")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Credential_SaltsDiffer(t *testing.T) {
	cred := NewArgon2Credential(fastParams)

	first, err := cred.Hash("same")
	require.NoError(t, err)
	second, err := cred.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestArgon2Credential_RejectsBadInput(t *testing.T) {
	cred := NewArgon2Credential(fastParams)

	_, err := cred.Hash("")
	assert.Error(t, err)

	_, err = cred.Hash(strings.Repeat("a", maxPasswordLength+1))
	assert.Error(t, err)

	ok, err := cred.Verify("not-a-hash", "password")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cred.Verify("$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", "password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Credential_VerifiesWithRecordedParams(t *testing.T) {
	hash, err := NewArgon2Credential(fastParams).Hash("pw")
	require.NoError(t, err)

	// A hasher with different costs still verifies older hashes.
	ok, err := NewArgon2Credential(DefaultArgon2Params()).Verify(hash, "pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func newTestTokenService(t *testing.T, d time.Duration) *TokenService {
	t.Helper()
	key, err := LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	svc, err := NewTokenService(key, d)
	require.NoError(t, err)
	return svc
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTestTokenService(t, 0)
	assert.Equal(t, DefaultAccessTokenDuration, svc.AccessTokenDuration())

	user := &domain.User{ID: "user-1", Email: "alice@x.com"}
	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", claims.Subject)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.TokenID)
}

func TestTokenService_Expired(t *testing.T) {
	svc := newTestTokenService(t, time.Minute)

	token, _, err := svc.GenerateAccessToken(&domain.User{ID: "user-1", Email: "a@x.com"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestTokenService_WrongKey(t *testing.T) {
	issuer := newTestTokenService(t, time.Minute)
	verifier := newTestTokenService(t, time.Minute)

	token, _, err := issuer.GenerateAccessToken(&domain.User{ID: "user-1", Email: "a@x.com"})
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	assert.Error(t, err)

	_, err = verifier.VerifyAccessToken("garbage")
	assert.Error(t, err)
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewTokenService([]byte("short"), time.Minute)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey_Persists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, keyLength)

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadOrGenerateKey_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("abc"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	assert.Error(t, err)
}

func TestParseKey(t *testing.T) {
	valid := strings.Repeat("ab", 32)
	key, err := ParseKey(valid + "\n")
	require.NoError(t, err)
	assert.Len(t, key, keyLength)

	_, err = ParseKey(strings.Repeat("zz", 32))
	assert.Error(t, err)

	_, err = ParseKey("abcd")
	assert.Error(t, err)
}
