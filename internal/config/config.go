package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides where the optional YAML file is read from
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tvtime/config.yaml",
}

// Storage backends for favorites and search history
const (
	StorageBadger = "badger"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Trend counter backends
const (
	TrendRedis  = "redis"
	TrendSQL    = "sql"
	TrendMemory = "memory"
)

// Config holds all configuration for the service
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	TMDB    TMDBConfig    `koanf:"tmdb"`
	Storage StorageConfig `koanf:"storage"`
	Trend   TrendConfig   `koanf:"trend"`
	Session SessionConfig `koanf:"session"`
	Logging LoggingConfig `koanf:"logging"`
}

type ServerConfig struct {
	Port        string `koanf:"port"`
	GinMode     string `koanf:"gin_mode"`
	AdminAPIKey string `koanf:"admin_api_key"`
}

type TMDBConfig struct {
	APIKeys   []string      `koanf:"api_keys"` // 支持多个 API Key 轮询
	BaseURL   string        `koanf:"base_url"`
	ImageBase string        `koanf:"image_base"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"` // 每秒请求数，0 表示不限速
}

type StorageConfig struct {
	Backend   string `koanf:"backend"`
	BadgerDir string `koanf:"badger_dir"`
	RedisURL  string `koanf:"redis_url"`
}

type TrendConfig struct {
	Backend string `koanf:"backend"`
	SQLDSN  string `koanf:"sql_dsn"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `koanf:"idle_timeout"`
	Debounce    time.Duration `koanf:"debounce"`
	MaxSessions int           `koanf:"max_sessions"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    "8080",
			GinMode: "debug",
		},
		TMDB: TMDBConfig{
			APIKeys:   []string{},
			BaseURL:   "https://api.themoviedb.org/3",
			ImageBase: "https://image.tmdb.org/t/p/w500",
			Timeout:   10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:   StorageBadger,
			BadgerDir: "data/badger",
			RedisURL:  "redis://localhost:6379",
		},
		Trend: TrendConfig{
			Backend: TrendRedis,
			SQLDSN:  "data/trends.db",
		},
		Session: SessionConfig{
			IdleTimeout: 30 * time.Minute,
			Debounce:    500 * time.Millisecond,
			MaxSessions: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// envMappings keeps the flat variable names the service has always used
var envMappings = map[string]string{
	"port":                 "server.port",
	"gin_mode":             "server.gin_mode",
	"admin_api_key":        "server.admin_api_key",
	"tmdb_api_key":         "tmdb.api_keys",
	"tmdb_base_url":        "tmdb.base_url",
	"tmdb_image_base":      "tmdb.image_base",
	"tmdb_timeout":         "tmdb.timeout",
	"tmdb_rate_limit":      "tmdb.rate_limit",
	"storage_backend":      "storage.backend",
	"badger_dir":           "storage.badger_dir",
	"redis_url":            "storage.redis_url",
	"trend_backend":        "trend.backend",
	"trend_sql_dsn":        "trend.sql_dsn",
	"session_idle_timeout": "session.idle_timeout",
	"debounce_delay":       "session.debounce",
	"max_sessions":         "session.max_sessions",
	"log_level":            "logging.level",
	"log_file":             "logging.file",
}

// sliceConfigPaths arrive from the environment as comma-separated strings
var sliceConfigPaths = []string{
	"tmdb.api_keys",
}

// Load reads configuration: defaults, then the optional YAML file, then environment variables
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the service cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBadger, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.Trend.Backend {
	case TrendRedis, TrendSQL, TrendMemory:
	default:
		return fmt.Errorf("unknown TREND_BACKEND %q", c.Trend.Backend)
	}
	if c.Trend.Backend == TrendSQL && c.Trend.SQLDSN == "" {
		return fmt.Errorf("TREND_SQL_DSN is required when TREND_BACKEND=sql")
	}
	if c.TMDB.Timeout <= 0 {
		return fmt.Errorf("TMDB_TIMEOUT must be positive, got %s", c.TMDB.Timeout)
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.Session.MaxSessions)
	}
	if c.TMDB.RateLimit < 0 {
		return fmt.Errorf("TMDB_RATE_LIMIT must not be negative")
	}
	return nil
}

// NeedsRedis reports whether any configured backend talks to Redis
func (c *Config) NeedsRedis() bool {
	return c.Storage.Backend == StorageRedis || c.Trend.Backend == TrendRedis
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// unmapped variables are skipped
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		// 支持多个值，用逗号分隔
		values := []string{}
		for _, p := range strings.Split(strVal, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				values = append(values, trimmed)
			}
		}
		if err := k.Set(path, values); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
