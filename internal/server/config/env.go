package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Environment variable names.
const (
	EnvPort     = "PORT"
	EnvNodeEnv  = "NODE_ENV"
	EnvLogLevel = "LOG_LEVEL"
	EnvDB       = "DB"
	EnvDBDriver = "DB_DRIVER"

	EnvBcryptCost          = "BCRYPT_COST"
	EnvAccessTokenSecret   = "ACCESS_TOKEN_SECRET"
	EnvRefreshTokenSecret  = "REFRESH_TOKEN_SECRET"
	EnvAccessTokenExpires  = "ACCESS_TOKEN_EXPIRES_IN"
	EnvRefreshTokenExpires = "REFRESH_TOKEN_EXPIRES_IN"
	EnvResetTokenLength    = "PASSWD_RESET_TOKEN_LENGTH"
	EnvResetTokenExpires   = "PASSWD_RESET_TOKEN_EXPIRES_IN" // minutes

	EnvRateLimitMax   = "RATELIMIT_MAX"
	EnvRateLimitTime  = "RATELIMIT_TIME" // hours
	EnvRequestBodyMax = "REQUEST_BODY_MAX"

	EnvSessionCleanup = "SESSION_CLEANUP_SCHEDULE"

	EnvMainSiteURL       = "MAIN_SITE_URL"
	EnvChangePasswordURL = "CHANGE_PASSWD_URL"

	EnvEmailHost     = "EMAIL_HOST"
	EnvEmailPort     = "EMAIL_PORT"
	EnvEmailUsername = "EMAIL_USERNAME"
	EnvEmailPassword = "EMAIL_PASSWD"
	EnvEmailFrom     = "EMAIL_FROM"
)

// parseEnv overlays non-empty environment variables onto config.
// Malformed values are errors rather than silently ignored.
func parseEnv(config *Config, getenv func(string) string) error {
	p := envParser{getenv: getenv}

	p.str(EnvNodeEnv, &config.Env)
	p.int(EnvPort, &config.Port)
	p.str(EnvLogLevel, &config.LogLevel)
	p.str(EnvDB, &config.DB)
	p.str(EnvDBDriver, &config.DBDriver)

	p.int(EnvBcryptCost, &config.BcryptCost)
	p.str(EnvAccessTokenSecret, &config.AccessTokenSecret)
	p.str(EnvRefreshTokenSecret, &config.RefreshTokenSecret)
	p.duration(EnvAccessTokenExpires, time.Second, &config.AccessTokenTTL)
	p.duration(EnvRefreshTokenExpires, time.Second, &config.RefreshTokenTTL)
	p.int(EnvResetTokenLength, &config.ResetTokenLength)
	p.duration(EnvResetTokenExpires, time.Minute, &config.ResetTokenTTL)

	p.int(EnvRateLimitMax, &config.RateLimitMax)
	p.duration(EnvRateLimitTime, time.Hour, &config.RateLimitWindow)
	p.bytes(EnvRequestBodyMax, &config.RequestBodyMax)

	p.str(EnvSessionCleanup, &config.SessionCleanupSchedule)

	p.str(EnvMainSiteURL, &config.MainSiteURL)
	p.str(EnvChangePasswordURL, &config.ChangePasswordURL)

	p.str(EnvEmailHost, &config.Email.Host)
	p.int(EnvEmailPort, &config.Email.Port)
	p.str(EnvEmailUsername, &config.Email.Username)
	p.str(EnvEmailPassword, &config.Email.Password)
	p.str(EnvEmailFrom, &config.Email.From)

	return p.err
}

// envParser keeps the first parse error.
type envParser struct {
	getenv func(string) string
	err    error
}

func (p *envParser) lookup(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v := strings.TrimSpace(p.getenv(key))
	return v, v != ""
}

func (p *envParser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *envParser) int(key string, dst *int) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (p *envParser) duration(key string, unit time.Duration, dst *time.Duration) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := ParseDuration(v, unit)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = d
}

func (p *envParser) bytes(key string, dst *int64) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := ParseBytes(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

// ParseDuration accepts a bare integer counted in unit, a number of days
// such as "30d", or anything time.ParseDuration understands.
func ParseDuration(s string, unit time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * unit, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// ParseBytes parses sizes such as "10kb", "1MiB" or "2048".
func ParseBytes(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > uint64(1<<62) {
		return 0, fmt.Errorf("size %q too large", s)
	}
	return int64(n), nil
}
