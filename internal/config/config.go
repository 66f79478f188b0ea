package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Vision   VisionConfig
	Media    MediaConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"90s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	StaticDir    string        `envconfig:"STATIC_DIR" default:"web/static"`
	TemplateDir  string        `envconfig:"TEMPLATE_DIR" default:"web/templates"`
}

// DatabaseConfig holds the account store settings. SQLite is the default;
// setting DATABASE_URL switches the store to PostgreSQL.
type DatabaseConfig struct {
	SQLitePath string `envconfig:"SQLITE_PATH" default:"users.db"`
	URL        string `envconfig:"DATABASE_URL" default:""`
}

// SessionConfig holds session cookie settings.
type SessionConfig struct {
	Secret   string        `envconfig:"SESSION_SECRET" default:""`
	Duration time.Duration `envconfig:"SESSION_DURATION" default:"168h"`
	Secure   bool          `envconfig:"SESSION_SECURE" default:"false"`
}

// VisionConfig holds remote vision inference settings.
type VisionConfig struct {
	Provider    string        `envconfig:"VISION_PROVIDER" default:"openai"`
	APIKey      string        `envconfig:"OPENAI_API_KEY" default:""`
	Project     string        `envconfig:"OPENAI_PROJECT" default:""`
	Model       string        `envconfig:"OPENAI_VISION_MODEL" default:"gpt-4o-mini"`
	GeminiKey   string        `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel string        `envconfig:"GEMINI_VISION_MODEL" default:"gemini-2.0-flash"`
	Timeout     time.Duration `envconfig:"VISION_TIMEOUT" default:"60s"`
}

// MediaConfig describes the optional S3 photo archive.
type MediaConfig struct {
	Bucket         string `envconfig:"S3_BUCKET" default:""`
	Region         string `envconfig:"S3_REGION" default:""`
	Endpoint       string `envconfig:"S3_ENDPOINT" default:""`
	PublicURL      string `envconfig:"S3_PUBLIC_URL" default:""`
	KeyPrefix      string `envconfig:"S3_KEY_PREFIX" default:"meals"`
	ForcePathStyle bool   `envconfig:"S3_FORCE_PATH_STYLE" default:"false"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}
