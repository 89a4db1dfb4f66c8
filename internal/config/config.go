// Package config loads nbsync settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/nbsync/internal/reconcile"
	"github.com/roach88/nbsync/internal/registry"
)

// DefaultPort is the router's well-known port.
const DefaultPort = 12517

// Environment overrides.
const (
	EnvHost     = "NBSYNC_EXECUTE_HOST"
	EnvPort     = "NBSYNC_EXECUTE_PORT"
	EnvLogLevel = "NBSYNC_LOG_LEVEL"
)

// Config holds every setting.
type Config struct {
	Router   RouterConfig  `toml:"router" json:"router"`
	Sync     SyncConfig    `toml:"sync" json:"sync"`
	Journal  JournalConfig `toml:"journal" json:"journal"`
	LogLevel string        `toml:"log_level" json:"log_level"`
	LogFile  string        `toml:"log_file" json:"log_file"`
}

// RouterConfig locates the router.
type RouterConfig struct {
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`
}

// SyncConfig tunes reconciliation.
type SyncConfig struct {
	Extension           string  `toml:"extension" json:"extension"`
	SimilarityThreshold float64 `toml:"similarity_threshold" json:"similarity_threshold"`
	Scorer              string  `toml:"scorer" json:"scorer"`
	AckTimeout          string  `toml:"ack_timeout" json:"ack_timeout"`
}

// JournalConfig locates the sync journal. An empty Path disables it.
type JournalConfig struct {
	Path string `toml:"path" json:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Router: RouterConfig{Host: "localhost", Port: DefaultPort},
		Sync: SyncConfig{
			Extension:           registry.DefaultExtension,
			SimilarityThreshold: reconcile.DefaultThreshold,
			Scorer:              reconcile.ScorerRatio,
			AckTimeout:          "5s",
		},
		Journal:  JournalConfig{Path: defaultJournalPath()},
		LogLevel: "info",
	}
}

// Path returns the config file location: $XDG_CONFIG_HOME/nbsync/config.toml,
// falling back to ~/.config.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "nbsync", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "nbsync", "config.toml"), nil
}

func defaultJournalPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "nbsync", "journal.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "nbsync", "journal.db")
}

// Load reads the file at the standard location, or defaults if it is absent,
// then applies environment overrides.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		cfg := Default()
		return cfg, cfg.applyEnv()
	}
	return LoadFromFile(p)
}

// LoadFromFile reads filePath. A missing file yields the defaults.
func LoadFromFile(filePath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvHost); v != "" {
		c.Router.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Router.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Router.Port <= 0 || c.Router.Port > 65535 {
		return fmt.Errorf("router.port %d: out of range", c.Router.Port)
	}
	if c.Sync.SimilarityThreshold < 0 || c.Sync.SimilarityThreshold > 1 {
		return fmt.Errorf("sync.similarity_threshold %v: must be within [0,1]", c.Sync.SimilarityThreshold)
	}
	if _, err := reconcile.ScorerByName(c.Sync.Scorer); err != nil {
		return fmt.Errorf("sync.scorer: %w", err)
	}
	if strings.ContainsAny(c.Sync.Extension, "./\\") || c.Sync.Extension == "" {
		return fmt.Errorf("sync.extension %q: must be a bare name", c.Sync.Extension)
	}
	if _, err := c.AckTimeout(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// RouterURL is the router's JSON-RPC endpoint.
func (c *Config) RouterURL() string {
	return fmt.Sprintf("http://%s:%d/", c.Router.Host, c.Router.Port)
}

// AckTimeout parses sync.ack_timeout.
func (c *Config) AckTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sync.AckTimeout)
	if err != nil {
		return 0, fmt.Errorf("sync.ack_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("sync.ack_timeout %s: must be positive", d)
	}
	return d, nil
}

// Matcher builds the output matcher described by the sync section.
func (c *Config) Matcher() (*reconcile.Matcher, error) {
	scorer, err := reconcile.ScorerByName(c.Sync.Scorer)
	if err != nil {
		return nil, err
	}
	return reconcile.NewMatcher(c.Sync.SimilarityThreshold, scorer), nil
}

// Level parses log_level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Save writes c to filePath, creating its directory.
func (c *Config) Save(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filePath, data, 0o644)
}
