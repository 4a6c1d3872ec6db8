// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Backend   BackendConfig   `koanf:"backend"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Auth      AuthConfig      `koanf:"auth"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Upload    UploadConfig    `koanf:"upload"`
	FileStore FileStoreConfig `koanf:"filestore"`
	Web       WebConfig       `koanf:"web"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// BackendConfig points at the hosted backend-as-a-service. An empty URL or
// AnonKey puts the service in disconnected mode.
type BackendConfig struct {
	URL     string        `koanf:"url"`
	AnonKey string        `koanf:"anon_key"`
	Bucket  string        `koanf:"bucket"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig is optional. When URL is set, profile and book rows are read
// and written through a direct Postgres connection instead of the REST API.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	SessionExpire     time.Duration `koanf:"session_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

type AuthConfig struct {
	AdminEmail     string        `koanf:"admin_email"`
	ProfileTimeout time.Duration `koanf:"profile_timeout"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	SafetyTimeout  time.Duration `koanf:"safety_timeout"`
	WorkspaceIdle  time.Duration `koanf:"workspace_idle"`
}

type CatalogConfig struct {
	DefaultCoverURL string        `koanf:"default_cover_url"`
	LoadTimeout     time.Duration `koanf:"load_timeout"`
}

type UploadConfig struct {
	MaxFileSize int64 `koanf:"max_file_size"`
}

type FileStoreConfig struct {
	Path string `koanf:"path"`
}

type WebConfig struct {
	StaticDir string `koanf:"static_dir"`
}

// RateLimitConfig holds one limit per throttled action.
type RateLimitConfig struct {
	Credentials LimitConfig `koanf:"credentials"`
	Uploads     LimitConfig `koanf:"uploads"`
}

type LimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

const (
	DefaultAdminEmail  = "admin@example.com"
	DefaultMaxFileSize = 200 * 1024 * 1024
	DefaultCoverURL    = "https://images.pexels.com/photos/159711/books-bookstore-book-reading-159711.jpeg?auto=compress&cs=tinysrgb&w=300"
)

var (
	cfg  *Config
	once sync.Once
)

// Load reads configuration once per process. Later calls return the first
// result.
func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath, ".env")
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath, dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load dotenv: %w", err)
		}
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "StudyVault",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "120s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"backend.bucket":  "books",
		"backend.timeout": "30s",

		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 2,

		"jwt.access_token_expire": "1h",
		"jwt.session_expire":      "168h",
		"jwt.issuer":              "studyvault",
		"jwt.audience":            "studyvault-web",
		"jwt.private_key_path":    "keys/private.pem",
		"jwt.public_key_path":     "keys/public.pem",

		"auth.admin_email":     DefaultAdminEmail,
		"auth.profile_timeout": "3s",
		"auth.session_timeout": "5s",
		"auth.safety_timeout":  "8s",
		"auth.workspace_idle":  "30m",

		"catalog.default_cover_url": DefaultCoverURL,
		"catalog.load_timeout":      "15s",

		"upload.max_file_size": DefaultMaxFileSize,

		"filestore.path": "data/files.db",

		"rate_limit.credentials.requests": 30,
		"rate_limit.credentials.window":   "1m",
		"rate_limit.credentials.burst":    10,
		"rate_limit.uploads.requests":     20,
		"rate_limit.uploads.window":       "1h",
		"rate_limit.uploads.burst":        5,

		"cors.allowed_origins": []string{"http://localhost:5173"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "studyvault",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"SUPABASE_URL":                "backend.url",
	"VITE_SUPABASE_URL":           "backend.url",
	"SUPABASE_ANON_KEY":           "backend.anon_key",
	"VITE_SUPABASE_ANON_KEY":      "backend.anon_key",
	"SUPABASE_BUCKET":             "backend.bucket",
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_SESSION_EXPIRE":          "jwt.session_expire",
	"ADMIN_EMAIL":                 "auth.admin_email",
	"FILESTORE_PATH":              "filestore.path",
	"UPLOAD_MAX_FILE_SIZE":        "upload.max_file_size",
	"STATIC_DIR":                  "web.static_dir",
	"RATE_LIMIT_REQUESTS":         "rate_limit.credentials.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.credentials.window",
	"RATE_LIMIT_BURST":            "rate_limit.credentials.burst",
	"UPLOAD_RATE_LIMIT_REQUESTS":  "rate_limit.uploads.requests",
	"UPLOAD_RATE_LIMIT_WINDOW":    "rate_limit.uploads.window",
	"UPLOAD_RATE_LIMIT_BURST":     "rate_limit.uploads.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

// envKeyReplacer maps known variables onto config keys. Unknown and empty
// variables are skipped so they never mask a file value.
func envKeyReplacer(key, value string) (string, any) {
	mapped, ok := envKeyMap[key]
	if !ok || value == "" {
		return "", nil
	}
	return mapped, value
}

func validate(c *Config) error {
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload.max_file_size must be positive")
	}

	if c.Auth.ProfileTimeout <= 0 || c.Auth.SessionTimeout <= 0 {
		return fmt.Errorf("auth timeouts must be positive")
	}

	if c.Auth.SafetyTimeout < c.Auth.SessionTimeout {
		return fmt.Errorf("auth.safety_timeout must not be shorter than auth.session_timeout")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	for name, l := range map[string]LimitConfig{
		"credentials": c.RateLimit.Credentials,
		"uploads":     c.RateLimit.Uploads,
	} {
		if l.Requests <= 0 || l.Window <= 0 || l.Burst <= 0 {
			return fmt.Errorf("rate_limit.%s needs positive requests, window and burst", name)
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

// BackendConfigured reports whether both connection parameters are present.
func (c *Config) BackendConfigured() bool {
	return c.Backend.URL != "" && c.Backend.AnonKey != ""
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
