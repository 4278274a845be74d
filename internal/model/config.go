package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// State backend identifiers.
const (
	StateBackendSQLite = "sqlite"
	StateBackendRedis  = "redis"
	StateBackendMemory = "memory"
)

// APIConfig holds the connection settings for the task API.
type APIConfig struct {
	// BaseURL is the root URL of the task service (the /api prefix is added by the client).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how many times a rate-limited request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// StateConfig selects where notification watermarks are persisted.
type StateConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	Path        string `mapstructure:"path" yaml:"path"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB     int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme       string `mapstructure:"theme" yaml:"theme"`
	RecentCount int    `mapstructure:"recent_count" yaml:"recent_count"`
}

// LogConfig controls where the application log is written.
type LogConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	State   StateConfig   `mapstructure:"state" yaml:"state"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/tasys, falling back to the working directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tasys")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tasys/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:3001",
			TimeoutSec: 30,
			MaxRetries: 3,
		},
		State: StateConfig{
			Backend:     StateBackendSQLite,
			Path:        filepath.Join(dir, "state.db"),
			RedisAddr:   "localhost:6379",
			RedisPrefix: "tasys:",
		},
		Display: DisplayConfig{
			Theme:       "default",
			RecentCount: 5,
		},
		Log: LogConfig{
			File: filepath.Join(dir, "tasys.log"),
		},
	}
}

// setDefaults registers every key with viper so that env overrides
// resolve during Unmarshal.
func setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout_sec", cfg.API.TimeoutSec)
	v.SetDefault("api.max_retries", cfg.API.MaxRetries)
	v.SetDefault("state.backend", cfg.State.Backend)
	v.SetDefault("state.path", cfg.State.Path)
	v.SetDefault("state.redis_addr", cfg.State.RedisAddr)
	v.SetDefault("state.redis_db", cfg.State.RedisDB)
	v.SetDefault("state.redis_prefix", cfg.State.RedisPrefix)
	v.SetDefault("display.theme", cfg.Display.Theme)
	v.SetDefault("display.recent_count", cfg.Display.RecentCount)
	v.SetDefault("log.file", cfg.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TASYS_ override file values
// (api.base_url -> TASYS_API_BASE_URL). If the file does not exist, the
// defaults plus any environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASYS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultAppConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = 30
	}
	if cfg.API.MaxRetries < 0 {
		cfg.API.MaxRetries = 0
	}
	if cfg.Display.RecentCount <= 0 {
		cfg.Display.RecentCount = 5
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	switch cfg.State.Backend {
	case StateBackendSQLite, StateBackendRedis, StateBackendMemory:
	default:
		return nil, fmt.Errorf("parsing config %s: unknown state backend %q", path, cfg.State.Backend)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("state", cfg.State)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
