package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"ENV", "LOG_LEVEL", "DATA_PATH", "APP_NAME", "PUBLIC_BASE_URL",
	"ACCESS_TOKEN_DURATION", "AUTH_KEY", "SERVER_PORT",
	"SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT",
	"CORS_ORIGINS",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// baseArgs points the loader at a missing .env file and a temp data dir.
func baseArgs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"-env-file", filepath.Join(dir, "missing.env"),
		"-data-path", filepath.Join(dir, "data"),
	}
}

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/some/path"},
		Server: ServerConfig{Port: "8000"},
		Auth:   AuthConfig{AccessTokenDuration: 30 * time.Minute},
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(baseArgs(t))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "CollabNotes API", cfg.App.Name)
	assert.Empty(t, cfg.App.PublicBaseURL)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Nil(t, cfg.Auth.AccessTokenKey)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Server.CORSOrigins)
	assert.True(t, filepath.IsAbs(cfg.Data.BasePath))
	assert.Equal(t, filepath.Join(cfg.Data.BasePath, "notes.db"), cfg.Data.DatabasePath())
	assert.Equal(t, filepath.Join(cfg.Data.BasePath, "search.bleve"), cfg.Data.SearchIndexPath())
}

func TestLoad_DefaultDataPath(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load([]string{"-env-file", filepath.Join(home, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "CollabNotes", "data"), cfg.Data.BasePath)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("ACCESS_TOKEN_DURATION", "1h")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example ")
	t.Setenv("PUBLIC_BASE_URL", "https://notes.example.com/")

	cfg, err := Load(baseArgs(t))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://notes.example.com", cfg.App.PublicBaseURL)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9000")

	args := append(baseArgs(t), "-port", "7000")
	cfg, err := Load(args)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := strings.Join([]string{
		"# comment",
		"",
		"APP_NAME=\"Notes From File\"",
		"export LOG_LEVEL=warn",
		"SERVER_PORT=8100",
	}, "\n")
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	// A real env var wins over the file.
	t.Setenv("SERVER_PORT", "8200")

	cfg, err := Load([]string{"-env-file", envPath, "-data-path", filepath.Join(dir, "data")})
	require.NoError(t, err)

	assert.Equal(t, "Notes From File", cfg.App.Name)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "8200", cfg.Server.Port)
}

func TestLoad_AuthKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_KEY", strings.Repeat("ab", 32))

	cfg, err := Load(baseArgs(t))
	require.NoError(t, err)
	require.Len(t, cfg.Auth.AccessTokenKey, 32)
	assert.Equal(t, byte(0xab), cfg.Auth.AccessTokenKey[0])
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "ACCESS_TOKEN_DURATION", "thirty"},
		{"zero duration", "ACCESS_TOKEN_DURATION", "0s"},
		{"bad timeout", "SERVER_READ_TIMEOUT", "soon"},
		{"non-hex key", "AUTH_KEY", "not-hex"},
		{"short key", "AUTH_KEY", "abcd"},
		{"bad env", "ENV", "test"},
		{"bad level", "LOG_LEVEL", "trace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load(baseArgs(t))
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"-no-such-flag"})
	assert.Error(t, err)
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/notes", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("/a/b/../c", "")
	require.NoError(t, err)
	assert.Equal(t, "/a/c", got)

	got, err = expandPath("rel", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList("a, b,,"))
	assert.Nil(t, splitList(""))
}
