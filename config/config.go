package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides. Nested keys use a double underscore,
// e.g. INKWELL_DATABASE__DRIVER=sqlite.
const EnvPrefix = "INKWELL_"

// AppConfig holds the full application configuration.
// Sensitive data should never have defaults inside code and must be provided via the config file or the environment.
type AppConfig struct {
	App        AppSection        `koanf:"app"`
	Database   DatabaseSection   `koanf:"database"`
	Redis      RedisSection      `koanf:"redis"`
	Log        LogSection        `koanf:"log"`
	Gin        GinSection        `koanf:"gin"`
	RateLimit  RateLimitSection  `koanf:"ratelimit"`
	Comment    CommentSection    `koanf:"comment"`
	Moderation ModerationSection `koanf:"moderation"`
	Admin      AdminSection      `koanf:"admin"`
	SMTP       SMTPSection       `koanf:"smtp"`
	Upload     UploadSection     `koanf:"upload"`
}

type AppSection struct {
	Port               string        `koanf:"port"`
	JWTSecret          string        `koanf:"jwt_secret"`
	ClientHashSecret   string        `koanf:"client_hash_secret"`
	BaseURL            string        `koanf:"base_url"`
	AllowedOrigins     []string      `koanf:"allowed_origins"`
	RateLimitPerMinute int           `koanf:"rate_limit_per_minute"`
	SessionTTL         time.Duration `koanf:"session_ttl"`
}

type DatabaseSection struct {
	// Driver is either "mysql" or "sqlite".
	Driver   string `koanf:"driver"`
	URI      string `koanf:"uri"`
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	// Path is the SQLite database file.
	Path string `koanf:"path"`
}

type RedisSection struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	DB       int    `koanf:"db"`
	Password string `koanf:"password"`
}

type LogSection struct {
	Level      string `koanf:"level"`
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

type GinSection struct {
	Mode    string `koanf:"mode"`
	LogPath string `koanf:"log_path"`
}

// RateLimitSection selects where comment throttling state lives.
type RateLimitSection struct {
	// Backend is "memory" (single process) or "redis" (shared).
	Backend       string        `koanf:"backend"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

type CommentSection struct {
	Window      time.Duration `koanf:"window"`
	MaxRequests int           `koanf:"max_requests"`
}

type ModerationSection struct {
	ExtraWords []string `koanf:"extra_words"`
}

type AdminSection struct {
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	NotifyEmail string `koanf:"notify_email"`
}

type SMTPSection struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`
	TLS      bool   `koanf:"tls"`
}

type UploadSection struct {
	Dir      string `koanf:"dir"`
	MaxBytes int64  `koanf:"max_bytes"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.Mutex
)

// ErrMissingSecret is returned when a required secret has no value.
var ErrMissingSecret = errors.New("required secret is not configured")

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	c, err := LoadFrom(filepath.Join("config", "config.toml"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.Lock()
	ok := loaded
	c := cfg
	mu.Unlock()
	if !ok {
		return Load()
	}
	return c
}

// Set replaces the cached configuration. Used by tests and embedded setups.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// LoadFrom builds configuration with precedence defaults -> TOML file (optional) -> environment.
func LoadFrom(path string) (AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return AppConfig{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return AppConfig{}, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return AppConfig{}, fmt.Errorf("load environment: %w", err)
	}

	var out AppConfig
	if err := k.Unmarshal("", &out); err != nil {
		return AppConfig{}, fmt.Errorf("decode configuration: %w", err)
	}
	out.Moderation.ExtraWords = splitAndTrim(out.Moderation.ExtraWords)
	out.App.AllowedOrigins = splitAndTrim(out.App.AllowedOrigins)

	if err := out.Validate(); err != nil {
		return AppConfig{}, err
	}
	return out, nil
}

// Validate enforces required values.
func (c AppConfig) Validate() error {
	if c.App.JWTSecret == "" {
		return fmt.Errorf("app.jwt_secret: %w", ErrMissingSecret)
	}
	if c.App.ClientHashSecret == "" {
		return fmt.Errorf("app.client_hash_secret: %w", ErrMissingSecret)
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be mysql or sqlite, got %q", c.Database.Driver)
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ratelimit.backend must be memory or redis, got %q", c.RateLimit.Backend)
	}
	if c.Comment.Window <= 0 || c.Comment.MaxRequests <= 0 {
		return errors.New("comment.window and comment.max_requests must be positive")
	}
	return nil
}

// Defaults returns the flat default key set.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"app.port":                  "8080",
		"app.base_url":              "http://localhost:8080",
		"app.allowed_origins":       []string{"*"},
		"app.rate_limit_per_minute": 20,
		"app.session_ttl":           "168h",

		"database.driver": "sqlite",
		"database.host":   "127.0.0.1",
		"database.port":   "3306",
		"database.user":   "root",
		"database.name":   "inkwell",
		"database.path":   "data/inkwell.db",

		"redis.enabled": false,
		"redis.host":    "127.0.0.1",
		"redis.port":    6379,

		"log.level":        "info",
		"log.max_size_mb":  100,
		"log.max_backups":  3,
		"log.max_age_days": 7,

		"gin.mode":     "release",
		"gin.log_path": "logs/go_gin.log",

		"ratelimit.backend":        "memory",
		"ratelimit.sweep_interval": "5m",

		"comment.window":       "15m",
		"comment.max_requests": 5,

		"smtp.port":      587,
		"smtp.from_name": "Inkwell",

		"upload.dir":       "uploads",
		"upload.max_bytes": 5 * 1024 * 1024,
	}
}

// envKey maps INKWELL_DATABASE__DRIVER to database.driver.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func splitAndTrim(in []string) []string {
	items := []string{}
	for _, raw := range in {
		for _, item := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}
