// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	c, err := load("", "")
	require.NoError(t, err)

	assert.Equal(t, "StudyVault", c.App.Name)
	assert.Equal(t, int64(DefaultMaxFileSize), c.Upload.MaxFileSize)
	assert.Equal(t, DefaultAdminEmail, c.Auth.AdminEmail)
	assert.Equal(t, 3*time.Second, c.Auth.ProfileTimeout)
	assert.Equal(t, 5*time.Second, c.Auth.SessionTimeout)
	assert.Equal(t, 8*time.Second, c.Auth.SafetyTimeout)
	assert.Equal(t, 30*time.Minute, c.Auth.WorkspaceIdle)
	assert.Equal(t, DefaultCoverURL, c.Catalog.DefaultCoverURL)
	assert.Equal(t, "books", c.Backend.Bucket)
	assert.Contains(t, c.CORS.AllowedMethods, "PUT")
	assert.Equal(t, 30, c.RateLimit.Credentials.Requests)
	assert.Equal(t, time.Hour, c.RateLimit.Uploads.Window)
}

func TestBackendFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("VITE_SUPABASE_URL", "https://project.supabase.test")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "anon-key")

	c, err := load("", "")
	require.NoError(t, err)

	assert.Equal(t, "https://project.supabase.test", c.Backend.URL)
	assert.Equal(t, "anon-key", c.Backend.AnonKey)
	assert.True(t, c.BackendConfigured())
}

func TestBackendMissingIsDisconnected(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SUPABASE_URL", "https://project.supabase.test")
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "")

	c, err := load("", "")
	require.NoError(t, err)

	assert.False(t, c.BackendConfigured())
}

func TestFileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
auth:
  admin_email: owner@example.com
upload:
  max_file_size: 1048576
`), 0o600))

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "9100")
	t.Setenv("ADMIN_EMAIL", "")

	c, err := load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 9100, c.Server.Port)
	assert.Equal(t, "0.0.0.0:9100", c.Server.Address())
	assert.Equal(t, int64(1<<20), c.Upload.MaxFileSize)
	assert.Equal(t, "owner@example.com", c.Auth.AdminEmail)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "redis required",
			env:     map[string]string{"REDIS_URL": ""},
			wantErr: "REDIS_URL is required",
		},
		{
			name: "upload size positive",
			env: map[string]string{
				"REDIS_URL":            "redis://localhost:6379/0",
				"UPLOAD_MAX_FILE_SIZE": "0",
			},
			wantErr: "max_file_size must be positive",
		},
		{
			name: "upload limit positive",
			env: map[string]string{
				"REDIS_URL":                  "redis://localhost:6379/0",
				"UPLOAD_RATE_LIMIT_REQUESTS": "0",
			},
			wantErr: "rate_limit.uploads",
		},
		{
			name: "insecure otel in production",
			env: map[string]string{
				"REDIS_URL":     "redis://localhost:6379/0",
				"ENVIRONMENT":   "production",
				"OTEL_ENABLED":  "true",
				"OTEL_INSECURE": "true",
			},
			wantErr: "OTEL_INSECURE must be false in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := load("", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSafetyTimeout(t *testing.T) {
	c := &Config{
		Upload: UploadConfig{MaxFileSize: 1},
		Redis:  RedisConfig{URL: "redis://x"},
		JWT:    JWTConfig{PrivateKeyPath: "k"},
		Auth: AuthConfig{
			ProfileTimeout: time.Second,
			SessionTimeout: 5 * time.Second,
			SafetyTimeout:  time.Second,
		},
		RateLimit: RateLimitConfig{
			Credentials: LimitConfig{Requests: 1, Window: time.Minute, Burst: 1},
			Uploads:     LimitConfig{Requests: 1, Window: time.Hour, Burst: 1},
		},
		Server: ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second},
	}

	err := validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety_timeout")

	c.Auth.SafetyTimeout = 8 * time.Second
	assert.NoError(t, validate(c))
}
