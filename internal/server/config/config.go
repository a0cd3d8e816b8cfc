// Package config handles configuration for the API server: defaults, an
// optional YAML file, environment variables and command-line flags, applied
// in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/crypto/bcrypt"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Config holds runtime settings of the API server.
type Config struct {
	Env      string
	Port     int
	LogLevel string

	DBDriver string
	DB       string // DSN for sqlite/postgres, file path for bolt

	BcryptCost         int
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	ResetTokenLength   int // bytes of entropy
	ResetTokenTTL      time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration
	RequestBodyMax  int64 // bytes

	// SessionCleanupSchedule is a cron spec for the expired session janitor.
	SessionCleanupSchedule string

	MainSiteURL       string
	ChangePasswordURL string

	Email EmailConfig
}

// EmailConfig holds SMTP settings. An empty Host selects the log mailer.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secrets are public and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.Env = EnvDevelopment
	c.Port = 3000
	c.LogLevel = "info"

	c.DBDriver = DriverSQLite
	c.DB = "natours.db"

	c.BcryptCost = 12
	c.AccessTokenSecret = "mega_super-SecReT"
	c.RefreshTokenSecret = "super_duper_seCreT"
	c.AccessTokenTTL = 30 * time.Minute
	c.RefreshTokenTTL = 30 * 24 * time.Hour
	c.ResetTokenLength = 32
	c.ResetTokenTTL = 10 * time.Minute

	c.RateLimitMax = 100
	c.RateLimitWindow = time.Hour
	c.RequestBodyMax = 10 * humanize.KByte

	c.SessionCleanupSchedule = "@hourly"

	c.MainSiteURL = "#"
	c.ChangePasswordURL = "#"

	c.Email = EmailConfig{
		Port: 587,
		From: "mail@example.com",
	}
}

// Load builds a Config from defaults, the YAML file named by -config, the
// environment (looked up through getenv) and finally the flags in args.
// The config flags are registered on fs so callers may add their own.
func Load(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fl := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fl.configFile != "" {
		if err := parseYAML(cfg, fl.configFile); err != nil {
			return nil, err
		}
	}

	if err := parseEnv(cfg, getenv); err != nil {
		return nil, err
	}

	fl.apply(cfg, fs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	switch c.DBDriver {
	case DriverSQLite, DriverPostgres, DriverBolt:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	if c.DB == "" {
		return errors.New("database DSN is required")
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return errors.New("token secrets cannot be empty")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.ResetTokenLength <= 0 {
		return errors.New("reset token length must be positive")
	}
	if c.ResetTokenTTL <= 0 {
		return errors.New("reset token lifetime must be positive")
	}

	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("rate limit must be positive")
	}
	if c.RequestBodyMax <= 0 {
		return errors.New("request body limit must be positive")
	}
	if c.SessionCleanupSchedule == "" {
		return errors.New("session cleanup schedule is required")
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
