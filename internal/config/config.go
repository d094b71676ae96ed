// Package config loads the server configuration.
//
// PRIORITY ORDER:
//
//	environment variables  >  YAML file  >  Default()
//
// The YAML file is optional: a missing file silently falls back to the
// defaults, so `qanda serve` works out of the box. Environment variables win
// so that deployments can keep secrets (JWT_SECRET, GITHUB_CLIENT_SECRET) out
// of the file entirely.
//
// Example qanda.yaml:
//
//	port: 8080
//	db_path: data/qanda.db
//	session_lifetime: 336h
//	log_level: info
//	github:
//	  client_id: Iv1.abc
//	  callback_url: https://qa.example.com/auth/github/callback
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// minSecretLength mirrors auth.NewTokenService.
const minSecretLength = 16

// GitHubConfig holds the optional GitHub OAuth app credentials.
// Sign-in with GitHub is enabled only when both ID and secret are set.
type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

// Enabled reports whether GitHub sign-in should be offered.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type Config struct {
	Port            int           `yaml:"port"`
	DBPath          string        `yaml:"db_path"`
	JWTSecret       string        `yaml:"jwt_secret"`
	SessionLifetime time.Duration `yaml:"session_lifetime"`
	LogLevel        string        `yaml:"log_level"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`

	// LoginRateLimit is the sustained number of POSTs per second one client
	// IP may send to /login and /register; LoginRateBurst is the bucket size.
	LoginRateLimit float64 `yaml:"login_rate_limit"`
	LoginRateBurst int     `yaml:"login_rate_burst"`

	GitHub GitHubConfig `yaml:"github"`

	// EphemeralSecret is set when no JWT secret was configured and Load
	// generated one. Tokens signed with it die with the process.
	EphemeralSecret bool `yaml:"-"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		Port:            8080,
		DBPath:          "data/qanda.db",
		SessionLifetime: 14 * 24 * time.Hour,
		LogLevel:        "info",
		BcryptCost:      12,
		MetricsEnabled:  true,
		LoginRateLimit:  1,
		LoginRateBurst:  10,
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty and the file exists) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return cfg, fmt.Errorf("config: generating JWT secret: %w", err)
		}
		cfg.JWTSecret = secret
		cfg.EphemeralSecret = true
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadEnv applies environment overrides. Unlike the YAML file, a malformed
// variable is an error: silently ignoring PORT=80a would be surprising.
func loadEnv(cfg *Config) error {
	var err error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" && err == nil {
			f, perr := strconv.ParseFloat(v, 64)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = b
		}
	}

	integer("PORT", &cfg.Port)
	str("DB_PATH", &cfg.DBPath)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("LOG_LEVEL", &cfg.LogLevel)
	integer("BCRYPT_COST", &cfg.BcryptCost)
	boolean("SECURE_COOKIES", &cfg.SecureCookies)
	boolean("METRICS_ENABLED", &cfg.MetricsEnabled)
	float("LOGIN_RATE_LIMIT", &cfg.LoginRateLimit)
	integer("LOGIN_RATE_BURST", &cfg.LoginRateBurst)
	str("GITHUB_CLIENT_ID", &cfg.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &cfg.GitHub.ClientSecret)
	str("GITHUB_CALLBACK_URL", &cfg.GitHub.CallbackURL)

	if v := os.Getenv("SESSION_LIFETIME"); v != "" && err == nil {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return fmt.Errorf("SESSION_LIFETIME: %w", perr)
		}
		cfg.SessionLifetime = d
	}
	return err
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("db_path is empty")
	}
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d characters", minSecretLength)
	}
	if c.SessionLifetime <= 0 {
		return errors.New("session_lifetime must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost %d outside [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.LoginRateLimit <= 0 {
		return errors.New("login_rate_limit must be positive")
	}
	if c.LoginRateBurst < 1 {
		return errors.New("login_rate_burst must be at least 1")
	}
	return nil
}

// ParseLevel maps a log_level value (debug, info, warn, error) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s, err)
	}
	return level, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
