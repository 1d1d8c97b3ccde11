package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/username/secid/backend/src/logger"
)

const minJWTSecretLength = 32

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	MaxUploadSizeBytes int64

	JWTSecret         string
	AccessTokenExpiry time.Duration
	AdminPasswordHash string

	SessionCacheTTL    time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
	AllowedOrigins     []string
}

var Cfg *AppConfig

var defaults = map[string]any{
	"port":                  "8080",
	"database_path":         "./secid.db",
	"log_level":             "info",
	"max_upload_size_bytes": int64(10 * 1024 * 1024),
	"jwt_secret":            "",
	"access_token_expiry":   "60m",
	"admin_password_hash":   "",
	"session_cache_ttl":     "15m",
	"rate_limit_per_second": 10.0,
	"rate_limit_burst":      30,
	"allowed_origins":       "http://localhost:3000",
}

// LoadConfig reads .env into the environment, then builds the configuration from
// environment variables, an optional config.yaml under CONFIG_PATH, and defaults,
// in that order of precedence. The result is stored in Cfg.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults.")
	} else {
		log.Println(".env file loaded successfully.")
	}

	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Printf("Loaded config file %s", v.ConfigFileUsed())
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	Cfg = cfg
	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, AuthEnabled=%t",
		cfg.Port, cfg.LogLevel, cfg.DatabasePath, cfg.AuthEnabled())
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetDefault("config_path", ".")
	v.AutomaticEnv()
	v.AddConfigPath(v.GetString("config_path"))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

func fromViper(v *viper.Viper) *AppConfig {
	return &AppConfig{
		Port:               v.GetString("port"),
		DatabasePath:       v.GetString("database_path"),
		LogLevel:           v.GetString("log_level"),
		MaxUploadSizeBytes: v.GetInt64("max_upload_size_bytes"),
		JWTSecret:          v.GetString("jwt_secret"),
		AccessTokenExpiry:  v.GetDuration("access_token_expiry"),
		AdminPasswordHash:  v.GetString("admin_password_hash"),
		SessionCacheTTL:    v.GetDuration("session_cache_ttl"),
		RateLimitPerSecond: v.GetFloat64("rate_limit_per_second"),
		RateLimitBurst:     v.GetInt("rate_limit_burst"),
		AllowedOrigins:     splitList(v.GetString("allowed_origins")),
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AuthEnabled reports whether the gated query and export endpoints can be unlocked.
func (c *AppConfig) AuthEnabled() bool {
	return c.AdminPasswordHash != ""
}

// Validate reports every configuration problem at once.
func (c *AppConfig) Validate() error {
	var problems []error
	if c.Port == "" {
		problems = append(problems, errors.New("PORT must not be empty"))
	}
	if c.MaxUploadSizeBytes <= 0 {
		problems = append(problems, errors.New("MAX_UPLOAD_SIZE_BYTES must be positive"))
	}
	if c.AccessTokenExpiry <= 0 {
		problems = append(problems, errors.New("ACCESS_TOKEN_EXPIRY must be a positive duration"))
	}
	if c.SessionCacheTTL <= 0 {
		problems = append(problems, errors.New("SESSION_CACHE_TTL must be a positive duration"))
	}
	if c.RateLimitPerSecond <= 0 {
		problems = append(problems, errors.New("RATE_LIMIT_PER_SECOND must be positive"))
	}
	if c.RateLimitBurst <= 0 {
		problems = append(problems, errors.New("RATE_LIMIT_BURST must be positive"))
	}
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		problems = append(problems, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.AuthEnabled() && len(c.JWTSecret) < minJWTSecretLength {
		problems = append(problems, fmt.Errorf("JWT_SECRET must be at least %d characters when ADMIN_PASSWORD_HASH is set", minJWTSecretLength))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(problems...))
	}
	return nil
}
