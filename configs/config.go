package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Auth struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

type History struct {
	Driver string
	URI    string
}

type Config struct {
	Username          string
	Password          string
	StorePath         string
	PostInterval      time.Duration
	DelayMin          int
	DelayMax          int
	MaxRetries        int
	LoginRetryDelay   time.Duration
	PublishRetryDelay time.Duration
	ThreadsAPIURL     string
	Auth              Auth
	SessionCachePath  string
	SessionSecret     string
	R2                R2
	RedisURI          string
	History           History
	StatusAddr        string
	StatusAPIKey      string
	LogLevel          string
	LogFile           string
	HTTPTimeout       time.Duration
}

var ErrConfig = errors.New("configuration error")

// ConfigError lists every missing or malformed setting. Values are never included.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required configuration: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid configuration: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func (e *ConfigError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

func LoadConfig() (*Config, error) {
	cerr := &ConfigError{}

	username := firstEnv("THREADS_USERNAME", "USERNAME")
	if username == "" {
		cerr.Missing = append(cerr.Missing, "USERNAME (or THREADS_USERNAME)")
	}
	password := firstEnv("THREADS_PASSWORD", "PASSWORD")
	if password == "" {
		cerr.Missing = append(cerr.Missing, "PASSWORD (or THREADS_PASSWORD)")
	}

	cfg := &Config{
		Username:          username,
		Password:          password,
		StorePath:         getEnv("STORE_PATH", getEnv("CSV_PATH", "threads_posts.csv")),
		PostInterval:      time.Duration(getEnvInt(cerr, "POST_INTERVAL_HOURS", 2)) * time.Hour,
		DelayMin:          getEnvInt(cerr, "RANDOM_DELAY_MIN", 30),
		DelayMax:          getEnvInt(cerr, "RANDOM_DELAY_MAX", 90),
		MaxRetries:        getEnvInt(cerr, "MAX_RETRIES", 3),
		LoginRetryDelay:   time.Duration(getEnvInt(cerr, "LOGIN_RETRY_DELAY_SECONDS", 5)) * time.Second,
		PublishRetryDelay: time.Duration(getEnvInt(cerr, "PUBLISH_RETRY_DELAY_SECONDS", 10)) * time.Second,
		ThreadsAPIURL:     strings.TrimRight(getEnv("THREADS_API_URL", "https://graph.threads.net/v1.0"), "/"),
		Auth: Auth{
			TokenURL:     getEnv("AUTH_TOKEN_URL", "https://graph.threads.net/oauth/access_token"),
			ClientID:     getEnv("AUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("AUTH_CLIENT_SECRET", ""),
		},
		SessionCachePath: getEnv("SESSION_CACHE_PATH", "threads_session.jwt"),
		SessionSecret:    getEnv("SESSION_SECRET", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),
		},
		RedisURI: getEnv("REDIS_URI", ""),
		History: History{
			Driver: getEnv("HISTORY_DATABASE_DRIVER", "sqlite"),
			URI:    getEnv("HISTORY_DATABASE_URI", ""),
		},
		StatusAddr:   getEnv("STATUS_ADDR", ""),
		StatusAPIKey: getEnv("STATUS_API_KEY", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      os.Getenv("LOG_FILE"),
		HTTPTimeout:  time.Duration(getEnvInt(cerr, "HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
	}
	if _, set := os.LookupEnv("LOG_FILE"); !set {
		cfg.LogFile = "threads_bot.log"
	}

	cfg.validate(cerr)
	if !cerr.empty() {
		return nil, cerr
	}
	return cfg, nil
}

// LoadStoreConfig reads only the settings needed to inspect the post store,
// so read-only commands work without credentials.
func LoadStoreConfig() *Config {
	return &Config{
		StorePath: getEnv("STORE_PATH", getEnv("CSV_PATH", "threads_posts.csv")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

func (c *Config) validate(cerr *ConfigError) {
	if c.PostInterval <= 0 {
		cerr.Invalid = append(cerr.Invalid, "POST_INTERVAL_HOURS must be positive")
	}
	if c.DelayMin < 0 || c.DelayMax < 0 {
		cerr.Invalid = append(cerr.Invalid, "RANDOM_DELAY_MIN and RANDOM_DELAY_MAX must not be negative")
	} else if c.DelayMin > c.DelayMax {
		cerr.Invalid = append(cerr.Invalid, "RANDOM_DELAY_MIN must not exceed RANDOM_DELAY_MAX")
	}
	if c.MaxRetries < 1 {
		cerr.Invalid = append(cerr.Invalid, "MAX_RETRIES must be at least 1")
	}
	switch c.History.Driver {
	case "sqlite", "postgres":
	default:
		cerr.Invalid = append(cerr.Invalid, "HISTORY_DATABASE_DRIVER must be sqlite or postgres")
	}
}

// R2Enabled reports whether enough R2 settings are present to upload media.
func (c *Config) R2Enabled() bool {
	return c.R2.AccountID != "" && c.R2.AccessKey != "" && c.R2.SecretKey != "" &&
		c.R2.BucketName != "" && c.R2.PublicURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func getEnvInt(cerr *ConfigError, key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s must be an integer", key))
		return defaultValue
	}
	return n
}
