// Package config loads the server configuration.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults (Default)
//  2. an optional YAML file: $CONFIG_PATH, else ./config.yaml or ./config.yml
//  3. environment variables: SECTION_KEY maps to section.key
//     (SERVER_PORT → server.port, SHORTLINK_BASE_URL → shortlink.base_url),
//     plus the short names PORT, DB_PATH, JWT_SECRET and GITHUB_*.
//
// The result is checked with go-playground/validator before use.
package config

import (
	"fmt"
	"time"

	"github.com/sakif/foodgram/internal/validation"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Auth       AuthConfig       `koanf:"auth"`
	ShortLink  ShortLinkConfig  `koanf:"shortlink"`
	Relations  RelationsConfig  `koanf:"relations"`
	Storage    StorageConfig    `koanf:"storage"`
	Logging    LoggingConfig    `koanf:"logging"`
	Pagination PaginationConfig `koanf:"pagination"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" json:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" json:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" json:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" json:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins" json:"cors_origins"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `koanf:"rate_limit" json:"rate_limit" validate:"min=0"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" json:"path" validate:"required"`
}

type AuthConfig struct {
	JWTSecret          string        `koanf:"jwt_secret" json:"jwt_secret" validate:"required,min=16"`
	TokenTTL           time.Duration `koanf:"token_ttl" json:"token_ttl" validate:"gt=0"`
	BcryptCost         int           `koanf:"bcrypt_cost" json:"bcrypt_cost" validate:"min=4,max=31"`
	GitHubClientID     string        `koanf:"github_client_id" json:"github_client_id"`
	GitHubClientSecret string        `koanf:"github_client_secret" json:"github_client_secret"`
	GitHubCallbackURL  string        `koanf:"github_callback_url" json:"github_callback_url" validate:"omitempty,url"`
	// CookieSecure marks the token cookie Secure; disable only for plain-HTTP development.
	CookieSecure bool `koanf:"cookie_secure" json:"cookie_secure"`
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (a AuthConfig) GitHubEnabled() bool {
	return a.GitHubClientID != "" && a.GitHubClientSecret != ""
}

type ShortLinkConfig struct {
	// BaseURL prefixes every short code; it must end with "/".
	BaseURL     string `koanf:"base_url" json:"base_url" validate:"required,url,endswith=/"`
	TokenLength int    `koanf:"token_length" json:"token_length" validate:"min=4,max=32"`
	MaxAttempts int    `koanf:"max_attempts" json:"max_attempts" validate:"min=1,max=100"`
}

type RelationsConfig struct {
	// IdempotentRemove makes removing an absent favorite, cart entry or
	// subscription a no-op instead of a not-found error.
	IdempotentRemove bool `koanf:"idempotent_remove" json:"idempotent_remove"`
}

type StorageConfig struct {
	Backend  string `koanf:"backend" json:"backend" validate:"oneof=local s3"`
	MediaDir string `koanf:"media_dir" json:"media_dir" validate:"required_if=Backend local"`
	// MediaURL is the public prefix for stored files, e.g. "/media/".
	MediaURL   string `koanf:"media_url" json:"media_url" validate:"required"`
	S3Bucket   string `koanf:"s3_bucket" json:"s3_bucket" validate:"required_if=Backend s3"`
	S3Region   string `koanf:"s3_region" json:"s3_region"`
	S3Endpoint string `koanf:"s3_endpoint" json:"s3_endpoint" validate:"omitempty,url"`
	// Static S3 credentials; when empty the default AWS credential chain is used.
	S3AccessKeyID     string `koanf:"s3_access_key_id" json:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key" json:"s3_secret_access_key"`
	// MaxImageBytes caps a decoded upload.
	MaxImageBytes int `koanf:"max_image_bytes" json:"max_image_bytes" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" json:"format" validate:"oneof=text json"`
}

type PaginationConfig struct {
	DefaultPageSize int `koanf:"default_page_size" json:"default_page_size" validate:"min=1"`
	MaxPageSize     int `koanf:"max_page_size" json:"max_page_size" validate:"min=1,gtefield=DefaultPageSize"`
}

// Default returns the built-in configuration. JWTSecret is empty and must
// be supplied by the environment or the config file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       300,
		},
		Database: DatabaseConfig{
			Path: "data/foodgram.db",
		},
		Auth: AuthConfig{
			TokenTTL:          24 * time.Hour,
			BcryptCost:        12,
			GitHubCallbackURL: "http://localhost:8000/auth/github/callback",
			CookieSecure:      true,
		},
		ShortLink: ShortLinkConfig{
			BaseURL:     "http://127.0.0.1:8000/s/",
			TokenLength: 10,
			MaxAttempts: 10,
		},
		Storage: StorageConfig{
			Backend:       "local",
			MediaDir:      "media",
			MediaURL:      "/media/",
			MaxImageBytes: 5 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Pagination: PaginationConfig{
			DefaultPageSize: 6,
			MaxPageSize:     100,
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    any
	}{
		{"server", &c.Server},
		{"database", &c.Database},
		{"auth", &c.Auth},
		{"shortlink", &c.ShortLink},
		{"storage", &c.Storage},
		{"logging", &c.Logging},
		{"pagination", &c.Pagination},
	}
	for _, s := range sections {
		if err := validation.Struct(s.v); err != nil {
			return fmt.Errorf("config: %s: %w", s.name, err)
		}
	}
	return nil
}
