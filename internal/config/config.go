package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the kitchen client settings.
type Config struct {
	APIURL          string
	TokenFile       string
	DataDir         string
	LogLevel        string
	RequestTimeout  time.Duration
	HealthInterval  time.Duration
	RefreshInterval time.Duration
	MaxAttempts     int
	Coalesce        bool
	MetricsAddr     string
}

const (
	defaultConfigPath      = "~/.config/kitchen/config.toml"
	defaultAPIURL          = "http://127.0.0.1:8000/api/v1"
	defaultTokenFile       = "~/.config/kitchen/token"
	defaultDataDir         = "~/.local/share/kitchen"
	defaultLogLevel        = "info"
	defaultRequestTimeout  = 10 * time.Second
	defaultHealthInterval  = 15 * time.Second
	defaultRefreshInterval = 60 * time.Second
	defaultMaxAttempts     = 10
)

type rawConfig struct {
	APIURL                 string `toml:"api_url"`
	TokenFile              string `toml:"token_file"`
	DataDir                string `toml:"data_dir"`
	LogLevel               string `toml:"log_level"`
	RequestTimeoutSeconds  *int   `toml:"request_timeout_seconds"`
	HealthIntervalSeconds  *int   `toml:"health_interval_seconds"`
	RefreshIntervalSeconds *int   `toml:"refresh_interval_seconds"`
	MaxAttempts            *int   `toml:"max_attempts"`
	Coalesce               *bool  `toml:"coalesce"`
	MetricsAddr            string `toml:"metrics_addr"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:          defaultAPIURL,
		TokenFile:       mustExpand(defaultTokenFile),
		DataDir:         mustExpand(defaultDataDir),
		LogLevel:        defaultLogLevel,
		RequestTimeout:  defaultRequestTimeout,
		HealthInterval:  defaultHealthInterval,
		RefreshInterval: defaultRefreshInterval,
		MaxAttempts:     defaultMaxAttempts,
		Coalesce:        true,
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if s := strings.TrimSpace(raw.APIURL); s != "" {
		cfg.APIURL = strings.TrimRight(s, "/")
	}
	if _, err := url.ParseRequestURI(cfg.APIURL); err != nil {
		return Config{}, fmt.Errorf("api_url: %w", err)
	}
	if s := strings.TrimSpace(raw.TokenFile); s != "" {
		cfg.TokenFile = mustExpand(s)
	}
	if s := strings.TrimSpace(raw.DataDir); s != "" {
		cfg.DataDir = mustExpand(s)
	}
	if s := strings.TrimSpace(raw.LogLevel); s != "" {
		cfg.LogLevel = strings.ToLower(s)
	}
	if cfg.RequestTimeout, err = seconds("request_timeout_seconds", raw.RequestTimeoutSeconds, defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.HealthInterval, err = seconds("health_interval_seconds", raw.HealthIntervalSeconds, defaultHealthInterval); err != nil {
		return Config{}, err
	}
	if cfg.RefreshInterval, err = seconds("refresh_interval_seconds", raw.RefreshIntervalSeconds, defaultRefreshInterval); err != nil {
		return Config{}, err
	}
	if raw.MaxAttempts != nil {
		if *raw.MaxAttempts < 0 {
			return Config{}, fmt.Errorf("max_attempts must be >= 0, got %d", *raw.MaxAttempts)
		}
		cfg.MaxAttempts = *raw.MaxAttempts
	}
	if raw.Coalesce != nil {
		cfg.Coalesce = *raw.Coalesce
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	return cfg, nil
}

// StorePath returns the bbolt database path.
func (c Config) StorePath() string {
	return filepath.Join(c.dataDir(), "kitchen.db")
}

// PrefsPath returns the UI preferences file path.
func (c Config) PrefsPath() string {
	return filepath.Join(filepath.Dir(mustExpand(defaultConfigPath)), "prefs.toml")
}

func (c Config) dataDir() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir)
	}
	return c.DataDir
}

func seconds(key string, v *int, def time.Duration) (time.Duration, error) {
	if v == nil {
		return def, nil
	}
	if *v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, *v)
	}
	return time.Duration(*v) * time.Second, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
