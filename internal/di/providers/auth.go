package providers

import (
	"github.com/samber/do/v2"

	"github.com/collabnotes/collabnotes-server/internal/auth"
	"github.com/collabnotes/collabnotes-server/internal/config"
	"github.com/collabnotes/collabnotes-server/internal/logger"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey returns the configured key, or loads or generates the key file.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	source := "config"
	key := cfg.Auth.AccessTokenKey
	if key == nil {
		var err error
		key, err = auth.LoadOrGenerateKey(cfg.Data.BasePath)
		if err != nil {
			return nil, err
		}
		cfg.Auth.AccessTokenKey = key
		source = "key file"
	}

	log.Info("Authentication key loaded",
		"source", source,
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.AccessTokenDuration)
}

// ProvideCredential provides the password hasher.
func ProvideCredential(i do.Injector) (auth.Credential, error) {
	return auth.NewArgon2Credential(auth.DefaultArgon2Params()), nil
}
