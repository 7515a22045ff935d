// Package config loads shiptrack's configuration.
//
// Values come from three layers, later ones winning:
//  1. Default()
//  2. an optional YAML file
//  3. environment variables (secrets normally live here)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Twitter   TwitterConfig   `yaml:"twitter"`
	LLM       LLMConfig       `yaml:"llm"`
	Email     EmailConfig     `yaml:"email"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type ServerConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"baseURL"` // public URL, used for OAuth callbacks
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type AuthConfig struct {
	JWTSecret           string        `yaml:"jwtSecret"`
	SessionTTL          time.Duration `yaml:"sessionTTL"`
	TwitterClientID     string        `yaml:"twitterClientID"`
	TwitterClientSecret string        `yaml:"twitterClientSecret"`
	TwitterCallbackURL  string        `yaml:"twitterCallbackURL"`
	// bcrypt hash of the shared secret external cron callers present.
	// Empty leaves the job endpoints open.
	CronSecretHash string `yaml:"cronSecretHash"`
}

type TwitterConfig struct {
	BearerToken   string  `yaml:"bearerToken"`
	BaseURL       string  `yaml:"baseURL"`
	MaxResults    int     `yaml:"maxResults"`
	RPS           float64 `yaml:"rps"`
	Burst         int     `yaml:"burst"`
	MaxAttempts   int     `yaml:"maxAttempts"`
	BaseBackoffMS int     `yaml:"baseBackoffMS"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "gemini"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"` // openai only
}

type EmailConfig struct {
	APIKey  string `yaml:"apiKey"` // Resend; empty logs emails instead of sending
	From    string `yaml:"from"`
	BaseURL string `yaml:"baseURL"`
}

type SchedulerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"runOnStart"`
	Timezone   string        `yaml:"timezone"` // IANA name; empty uses the process local zone
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, BaseURL: "http://localhost:8080"},
		Database: DatabaseConfig{Path: "data/shiptrack.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Auth:     AuthConfig{SessionTTL: 7 * 24 * time.Hour},
		Twitter: TwitterConfig{
			BaseURL:       "https://api.twitter.com/2",
			MaxResults:    10,
			RPS:           2,
			Burst:         10,
			MaxAttempts:   3,
			BaseBackoffMS: 500,
		},
		LLM:   LLMConfig{Provider: "openai", Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
		Email: EmailConfig{From: "Ship <notifications@ship.vennlabs.io>", BaseURL: "https://api.resend.com"},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: 24 * time.Hour,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	if err := cfg.ResolveEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ResolveEnv overrides fields from environment variables.
func (c *Config) ResolveEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	setString(&c.Server.BaseURL, "BASE_URL")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.TwitterClientID, "TWITTER_CLIENT_ID")
	setString(&c.Auth.TwitterClientSecret, "TWITTER_CLIENT_SECRET")
	setString(&c.Auth.TwitterCallbackURL, "TWITTER_CALLBACK_URL")
	setString(&c.Auth.CronSecretHash, "CRON_SECRET_HASH")
	setString(&c.Twitter.BearerToken, "TWITTER_BEARER_TOKEN")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.Email.APIKey, "RESEND_API_KEY")

	if c.LLM.APIKey == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	if c.Auth.TwitterCallbackURL == "" {
		c.Auth.TwitterCallbackURL = strings.TrimRight(c.Server.BaseURL, "/") + "/auth/twitter/callback"
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
// Missing third-party credentials are allowed; the components that need
// them degrade and log instead.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q must be openai or gemini", c.LLM.Provider))
	}
	if c.Twitter.MaxResults < 5 || c.Twitter.MaxResults > 100 {
		errs = append(errs, fmt.Errorf("twitter.maxResults %d must be between 5 and 100", c.Twitter.MaxResults))
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("scheduler.interval %s is shorter than a minute", c.Scheduler.Interval))
	}
	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SecureCookies reports whether session cookies should carry the Secure
// flag, which browsers only honour over HTTPS.
func (c ServerConfig) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// Location returns the zone calendar days are computed in.
func (c SchedulerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SlogLevel maps Log.Level onto slog; unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
