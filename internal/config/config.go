package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings
	HTTP struct {
		Address string `yaml:"address"`
		Port    string `yaml:"port"`
	} `yaml:"http"`

	// AceStream search feed and playback settings
	Acestream struct {
		SearchURL     string `yaml:"search_url"`
		StreamBase    string `yaml:"stream_base"`
		PageSize      int    `yaml:"page_size"`
		MaxPages      int    `yaml:"max_pages"`
		RetryAttempts int    `yaml:"retry_attempts"`
	} `yaml:"acestream"`

	// Rendered playlist settings
	Playlist struct {
		File   string `yaml:"file"`
		TTL    int    `yaml:"ttl"` // seconds
		EPGURL string `yaml:"epg_url"`
	} `yaml:"playlist"`

	// Outbound fetch settings
	Fetch struct {
		Timeout             time.Duration `yaml:"timeout"`
		ExternalConcurrency int           `yaml:"external_concurrency"`
	} `yaml:"fetch"`

	// Group rule tables
	Rules struct {
		File string `yaml:"file"`
	} `yaml:"rules"`

	// Startup warmup settings
	Startup struct {
		Attempts int           `yaml:"attempts"`
		Delay    time.Duration `yaml:"delay"`
	} `yaml:"startup"`

	// Circuit breaker settings for external playlists
	Breaker struct {
		FailureThreshold int           `yaml:"failure_threshold"`
		Timeout          time.Duration `yaml:"timeout"`
	} `yaml:"breaker"`

	// Logging settings
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}

	cfg.HTTP.Address = "0.0.0.0"
	cfg.HTTP.Port = "8000"

	cfg.Acestream.SearchURL = "http://acestream-engine:6878/search"
	cfg.Acestream.StreamBase = "http://127.0.0.1:6878/ace/manifest.m3u8"
	cfg.Acestream.PageSize = 10
	cfg.Acestream.MaxPages = 1000
	cfg.Acestream.RetryAttempts = 3

	cfg.Playlist.File = "playlist.m3u8"
	cfg.Playlist.TTL = 3600

	cfg.Fetch.Timeout = 15 * time.Second
	cfg.Fetch.ExternalConcurrency = 4

	cfg.Rules.File = "rules.yaml"

	cfg.Startup.Attempts = 10
	cfg.Startup.Delay = 5 * time.Second

	cfg.Breaker.FailureThreshold = 3
	cfg.Breaker.Timeout = 5 * time.Minute

	cfg.Log.Level = "INFO"
	cfg.Log.Format = "json"
	cfg.Log.MaxSizeMB = 50
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28

	return cfg
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTP.Address == "" {
		errors = append(errors, "HTTP address is required")
	}
	if c.HTTP.Port == "" {
		errors = append(errors, "HTTP port is required")
	}

	if err := validateURL(c.Acestream.SearchURL); err != nil {
		errors = append(errors, fmt.Sprintf("AceStream search URL: %v", err))
	}
	if err := validateURL(c.Acestream.StreamBase); err != nil {
		errors = append(errors, fmt.Sprintf("AceStream stream base: %v", err))
	}
	if c.Acestream.PageSize <= 0 {
		errors = append(errors, "AceStream page size must be positive")
	}
	if c.Acestream.MaxPages <= 0 {
		errors = append(errors, "AceStream max pages must be positive")
	}
	if c.Acestream.RetryAttempts <= 0 {
		errors = append(errors, "AceStream retry attempts must be positive")
	}

	if c.Playlist.File == "" {
		errors = append(errors, "Playlist file is required")
	}
	if c.Playlist.TTL <= 0 {
		errors = append(errors, "Playlist TTL must be positive")
	}
	if c.Playlist.EPGURL != "" {
		if err := validateURL(c.Playlist.EPGURL); err != nil {
			errors = append(errors, fmt.Sprintf("EPG URL: %v", err))
		}
	}

	if c.Fetch.Timeout <= 0 {
		errors = append(errors, "Fetch timeout must be positive")
	}
	if c.Fetch.ExternalConcurrency <= 0 {
		errors = append(errors, "External fetch concurrency must be positive")
	}

	if c.Startup.Attempts <= 0 {
		errors = append(errors, "Startup attempts must be positive")
	}
	if c.Startup.Delay < 0 {
		errors = append(errors, "Startup delay cannot be negative")
	}

	if c.Breaker.FailureThreshold <= 0 {
		errors = append(errors, "Breaker failure threshold must be positive")
	}
	if c.Breaker.Timeout <= 0 {
		errors = append(errors, "Breaker timeout must be positive")
	}

	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errors = append(errors, fmt.Sprintf("Invalid log level %q (must be DEBUG, INFO, WARN, or ERROR)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errors = append(errors, fmt.Sprintf("Invalid log format %q (must be json or text)", c.Log.Format))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// TTL returns the playlist time-to-live as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Playlist.TTL) * time.Second
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.HTTP.Address + ":" + c.HTTP.Port
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from a file (if provided) and applies environment variable overrides
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg = Default()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	texts := []struct {
		env    string
		target *string
	}{
		{"HTTP_ADDRESS", &cfg.HTTP.Address},
		{"PORT", &cfg.HTTP.Port},
		{"ACESTREAM_SEARCH_URL", &cfg.Acestream.SearchURL},
		{"ACESTREAM_STREAM_BASE", &cfg.Acestream.StreamBase},
		{"PLAYLIST_FILE", &cfg.Playlist.File},
		{"EPG_URL", &cfg.Playlist.EPGURL},
		{"RULES_FILE", &cfg.Rules.File},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
		{"LOG_FILE", &cfg.Log.File},
	}
	for _, s := range texts {
		if val := os.Getenv(s.env); val != "" {
			*s.target = val
		}
	}

	ints := []struct {
		env    string
		target *int
	}{
		{"ACESTREAM_PAGE_SIZE", &cfg.Acestream.PageSize},
		{"ACESTREAM_MAX_PAGES", &cfg.Acestream.MaxPages},
		{"ACESTREAM_RETRY_ATTEMPTS", &cfg.Acestream.RetryAttempts},
		{"PLAYLIST_TTL", &cfg.Playlist.TTL},
		{"EXTERNAL_CONCURRENCY", &cfg.Fetch.ExternalConcurrency},
		{"STARTUP_ATTEMPTS", &cfg.Startup.Attempts},
		{"BREAKER_FAILURE_THRESHOLD", &cfg.Breaker.FailureThreshold},
	}
	for _, i := range ints {
		val := os.Getenv(i.env)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", i.env, err)
		}
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got: %s", i.env, val)
		}
		*i.target = n
	}

	durations := []struct {
		env    string
		target *time.Duration
	}{
		{"FETCH_TIMEOUT", &cfg.Fetch.Timeout},
		{"STARTUP_DELAY", &cfg.Startup.Delay},
		{"BREAKER_TIMEOUT", &cfg.Breaker.Timeout},
	}
	for _, d := range durations {
		val := os.Getenv(d.env)
		if val == "" {
			continue
		}
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s format (expected duration like '15s', '5m'): %w", d.env, err)
		}
		if duration < 0 {
			return fmt.Errorf("%s cannot be negative, got: %s", d.env, val)
		}
		*d.target = duration
	}

	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
