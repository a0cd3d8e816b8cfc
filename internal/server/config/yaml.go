package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout of the config file. Absent keys leave the
// current value untouched; durations use the same syntax as the environment.
type fileConfig struct {
	Env      *string `yaml:"env"`
	Port     *int    `yaml:"port"`
	LogLevel *string `yaml:"log_level"`

	Database struct {
		Driver *string `yaml:"driver"`
		DSN    *string `yaml:"dsn"`
	} `yaml:"database"`

	Auth struct {
		BcryptCost         *int    `yaml:"bcrypt_cost"`
		AccessTokenSecret  *string `yaml:"access_token_secret"`
		RefreshTokenSecret *string `yaml:"refresh_token_secret"`
		AccessTokenTTL     *string `yaml:"access_token_expires_in"`
		RefreshTokenTTL    *string `yaml:"refresh_token_expires_in"`
		ResetTokenLength   *int    `yaml:"passwd_reset_token_length"`
		ResetTokenTTL      *string `yaml:"passwd_reset_token_expires_in"`
	} `yaml:"auth"`

	HTTP struct {
		RateLimitMax    *int    `yaml:"ratelimit_max"`
		RateLimitWindow *string `yaml:"ratelimit_time"`
		RequestBodyMax  *string `yaml:"request_body_max"`
	} `yaml:"http"`

	SessionCleanupSchedule *string `yaml:"session_cleanup_schedule"`

	MainSiteURL       *string `yaml:"main_site_url"`
	ChangePasswordURL *string `yaml:"change_passwd_url"`

	Email struct {
		Host     *string `yaml:"host"`
		Port     *int    `yaml:"port"`
		Username *string `yaml:"username"`
		Password *string `yaml:"password"`
		From     *string `yaml:"from"`
	} `yaml:"email"`
}

// parseYAML overlays the file at path onto config.
func parseYAML(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return fc.apply(config)
}

func (fc *fileConfig) apply(config *Config) error {
	set(&config.Env, fc.Env)
	set(&config.Port, fc.Port)
	set(&config.LogLevel, fc.LogLevel)
	set(&config.DBDriver, fc.Database.Driver)
	set(&config.DB, fc.Database.DSN)

	set(&config.BcryptCost, fc.Auth.BcryptCost)
	set(&config.AccessTokenSecret, fc.Auth.AccessTokenSecret)
	set(&config.RefreshTokenSecret, fc.Auth.RefreshTokenSecret)
	set(&config.ResetTokenLength, fc.Auth.ResetTokenLength)

	durations := []struct {
		key  string
		src  *string
		unit time.Duration
		dst  *time.Duration
	}{
		{"auth.access_token_expires_in", fc.Auth.AccessTokenTTL, time.Second, &config.AccessTokenTTL},
		{"auth.refresh_token_expires_in", fc.Auth.RefreshTokenTTL, time.Second, &config.RefreshTokenTTL},
		{"auth.passwd_reset_token_expires_in", fc.Auth.ResetTokenTTL, time.Minute, &config.ResetTokenTTL},
		{"http.ratelimit_time", fc.HTTP.RateLimitWindow, time.Hour, &config.RateLimitWindow},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := ParseDuration(*d.src, d.unit)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}

	set(&config.RateLimitMax, fc.HTTP.RateLimitMax)
	if fc.HTTP.RequestBodyMax != nil {
		n, err := ParseBytes(*fc.HTTP.RequestBodyMax)
		if err != nil {
			return fmt.Errorf("http.request_body_max: %w", err)
		}
		config.RequestBodyMax = n
	}

	set(&config.SessionCleanupSchedule, fc.SessionCleanupSchedule)
	set(&config.MainSiteURL, fc.MainSiteURL)
	set(&config.ChangePasswordURL, fc.ChangePasswordURL)

	set(&config.Email.Host, fc.Email.Host)
	set(&config.Email.Port, fc.Email.Port)
	set(&config.Email.Username, fc.Email.Username)
	set(&config.Email.Password, fc.Email.Password)
	set(&config.Email.From, fc.Email.From)

	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
