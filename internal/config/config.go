// ABOUTME: Configuration loaded from .env files and the process environment.
// ABOUTME: Covers the platform connection, console server, licensing, logging, and drafts.

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full console configuration.
type Config struct {
	BaseURL      string        `env:"DF_BASE_URL"      envDefault:"http://localhost/api/v2"`
	APIKey       string        `env:"DF_API_KEY"`
	SessionToken string        `env:"DF_SESSION_TOKEN"`
	Timeout      time.Duration `env:"DF_TIMEOUT"       envDefault:"20s"`
	Curl         bool          `env:"DF_CURL"          envDefault:"false"`

	LicenseKey string        `env:"DF_LICENSE_KEY"`
	LicenseURL string        `env:"DF_LICENSE_URL"  envDefault:"https://updates.dreamfactory.com/check"`
	LicenseTTL time.Duration `env:"DF_LICENSE_TTL"  envDefault:"1h"`

	Port           string `env:"DFCONSOLE_PORT"           envDefault:"8080"`
	DBPath         string `env:"DFCONSOLE_DB_PATH"`
	SessionKey     string `env:"DFCONSOLE_SESSION_KEY"`
	CSRFKey        string `env:"DFCONSOLE_CSRF_KEY"`
	SecureCookies  bool   `env:"DFCONSOLE_SECURE_COOKIES" envDefault:"false"`
	PageSize       int    `env:"DFCONSOLE_PAGE_SIZE"      envDefault:"25"`
	LogLevel       string `env:"DFCONSOLE_LOG_LEVEL"      envDefault:"info"`
	LogFormat      string `env:"DFCONSOLE_LOG_FORMAT"     envDefault:"console"`
	RetainLogsDays int    `env:"DFCONSOLE_RETAIN_LOGS_DAYS" envDefault:"7"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-5-mini"`
}

// LoadDotenv loads the first .env found in the working directory or its
// parents, then ~/.env. Variables already set are never overridden.
func LoadDotenv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".env"))
	}
}

// Load reads .env files and parses the environment.
func Load() (Config, error) {
	LoadDotenv()
	return Parse(nil)
}

// Parse parses the given variables, or the process environment when vars is nil.
func Parse(vars map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if vars != nil {
		opts.Environment = vars
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("DF_BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}
	if c.PageSize <= 0 || c.PageSize > 1000 {
		return fmt.Errorf("DFCONSOLE_PAGE_SIZE must be between 1 and 1000, got %d", c.PageSize)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("DFCONSOLE_LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}
