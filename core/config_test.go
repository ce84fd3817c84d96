package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "config-test-signing-key-32-bytes"

// clearConfigEnv isolates Load from the developer's environment.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "LOG_DIR", "DATABASE_URL", "REDIS_URL", "JWT_SECRET",
		"SERVICE_INTERNAL_KEY", "SERVICE_KEY_PATHS", "ALLOWED_ORIGINS", "BCRYPT_COST",
		"LOGIN_RATE_LIMIT", "LOGIN_RATE_WINDOW", "BOOTSTRAP_ADMIN", "BOOTSTRAP_ADMIN_EMAIL",
		"BOOTSTRAP_ADMIN_USERNAME", "INITIAL_ADMIN_PASSWORD_PATH",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("SERVICE_INTERNAL_KEY", "svc")
	t.Setenv("PORT", "8081")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("LOGIN_RATE_WINDOW", "90s")
	t.Setenv("BOOTSTRAP_ADMIN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.LoginRateWindow)
	assert.True(t, cfg.BootstrapAdminEnabled)

	// Untouched keys keep their defaults.
	assert.Equal(t, []string{"/user"}, cfg.ServiceKeyPaths)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 10, cfg.LoginRateLimit)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("FILE_SECRET", validSecret)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
jwt_secret: ${FILE_SECRET}
service_internal_key: from-file
service_key_paths: ["/user", "/admin/*"]
login_rate_limit: 5
login_rate_window: 2m
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVICE_INTERNAL_KEY", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, validSecret, cfg.JWTSecret)
	assert.Equal(t, "from-env", cfg.ServiceKey)
	assert.Equal(t, []string{"/user", "/admin/*"}, cfg.ServiceKeyPaths)
	assert.Equal(t, 5, cfg.LoginRateLimit)
	assert.Equal(t, 2*time.Minute, cfg.LoginRateWindow)
}

func TestLoad_MissingFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.ErrorContains(t, err, "reading config file")
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.JWTSecret = validSecret
	valid.ServiceKey = "svc"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, want: "JWT_SECRET"},
		{name: "no service key", mutate: func(c *Config) { c.ServiceKey = "" }, want: "SERVICE_INTERNAL_KEY"},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.BcryptCost = 2 }, want: "BCRYPT_COST"},
		{name: "zero window", mutate: func(c *Config) { c.LoginRateWindow = 0 }, want: "LOGIN_RATE_WINDOW"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	disabled := valid
	disabled.LoginRateLimit = 0
	disabled.LoginRateWindow = 0
	assert.NoError(t, disabled.Validate())
}
