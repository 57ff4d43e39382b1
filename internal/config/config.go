// Package config loads runtime settings from the environment, an optional
// .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

// Keys double as environment variable names.
const (
	KeyPort               = "PORT"
	KeyDBPath             = "DB_PATH"
	KeyJWTSecret          = "JWT_SECRET"
	KeySessionKey         = "SESSION_KEY"
	KeySessionTTL         = "SESSION_TTL"
	KeySecureCookies      = "SECURE_COOKIES"
	KeyGoogleClientID     = "GOOGLE_CLIENT_ID"
	KeyGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	KeyGoogleCallbackURL  = "GOOGLE_CALLBACK_URL"
	KeyRedisAddr          = "REDIS_ADDR"
	KeyRedisPassword      = "REDIS_PASSWORD"
	KeyRedisDB            = "REDIS_DB"
	KeyLoginRateLimit     = "LOGIN_RATE_LIMIT"
	KeyLatestItemsLimit   = "LATEST_ITEMS_LIMIT"
	KeyLogLevel           = "LOG_LEVEL"
	KeyLogFormat          = "LOG_FORMAT"
)

const (
	minJWTSecret  = 16
	minSessionKey = 32
)

// Config holds the application configuration.
type Config struct {
	Port          int
	DBPath        string
	JWTSecret     string
	SessionKey    string
	SessionTTL    time.Duration
	SecureCookies bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// RedisAddr empty means sessions and rate-limit counters stay in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRateLimit   string
	LatestItemsLimit int

	LogLevel  string
	LogFormat string
}

// New returns a viper instance with every default registered and the
// environment bound. envFile is loaded first when it exists; variables
// already set in the environment win over it.
func New(envFile string) *viper.Viper {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyDBPath, "data/catalog.db")
	v.SetDefault(KeyJWTSecret, "")
	v.SetDefault(KeySessionKey, "")
	v.SetDefault(KeySessionTTL, "24h")
	v.SetDefault(KeySecureCookies, false)
	v.SetDefault(KeyGoogleClientID, "")
	v.SetDefault(KeyGoogleClientSecret, "")
	v.SetDefault(KeyGoogleCallbackURL, "")
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyLoginRateLimit, "10-M")
	v.SetDefault(KeyLatestItemsLimit, 10)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.AutomaticEnv()
	return v
}

// Load reads a Config out of v. It does not validate.
func Load(v *viper.Viper) (*Config, error) {
	ttl, err := time.ParseDuration(v.GetString(KeySessionTTL))
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", KeySessionTTL, err)
	}

	cfg := &Config{
		Port:               v.GetInt(KeyPort),
		DBPath:             v.GetString(KeyDBPath),
		JWTSecret:          v.GetString(KeyJWTSecret),
		SessionKey:         v.GetString(KeySessionKey),
		SessionTTL:         ttl,
		SecureCookies:      v.GetBool(KeySecureCookies),
		GoogleClientID:     v.GetString(KeyGoogleClientID),
		GoogleClientSecret: v.GetString(KeyGoogleClientSecret),
		GoogleCallbackURL:  v.GetString(KeyGoogleCallbackURL),
		RedisAddr:          v.GetString(KeyRedisAddr),
		RedisPassword:      v.GetString(KeyRedisPassword),
		RedisDB:            v.GetInt(KeyRedisDB),
		LoginRateLimit:     v.GetString(KeyLoginRateLimit),
		LatestItemsLimit:   v.GetInt(KeyLatestItemsLimit),
		LogLevel:           strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:          strings.ToLower(v.GetString(KeyLogFormat)),
	}

	if cfg.GoogleCallbackURL == "" {
		cfg.GoogleCallbackURL = fmt.Sprintf("http://localhost:%d/login/google/authorized", cfg.Port)
	}
	return cfg, nil
}

// Validate reports every setting the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s must be between 1 and 65535, got %d", KeyPort, c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, fmt.Errorf("%s must be set", KeyDBPath))
	}
	if len(c.JWTSecret) < minJWTSecret {
		errs = append(errs, fmt.Errorf("%s must be at least %d characters", KeyJWTSecret, minJWTSecret))
	}
	if len(c.SessionKey) < minSessionKey {
		errs = append(errs, fmt.Errorf("%s must be at least %d characters", KeySessionKey, minSessionKey))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeySessionTTL))
	}
	if c.GoogleClientID != "" && c.GoogleClientSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", KeyGoogleClientSecret, KeyGoogleClientID))
	}
	if _, err := limiter.NewRateFromFormatted(c.LoginRateLimit); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyLoginRateLimit, err))
	}
	if c.LatestItemsLimit < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeyLatestItemsLimit))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("%s must be text or json, got %q", KeyLogFormat, c.LogFormat))
	}

	return errors.Join(errs...)
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return level, nil
}
