// Package config loads runlens settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultPath         = "~/.config/runlens/config.toml"
	defaultDBPath       = "~/.local/share/runlens/names.db"
	defaultSectionsPath = "~/.config/runlens/sections.jsonc"
	defaultListen       = "127.0.0.1:7480"
	defaultProject      = "default"
	defaultDebounce     = 300 * time.Millisecond
	defaultCacheTTL     = 60 * time.Second
	defaultMaxWidgets   = 100
)

// Duration is a time.Duration written as a Go duration string ("300ms").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	// DBPath is the SQLite name index. ":memory:" keeps it in process.
	DBPath string `toml:"db_path"`
	Listen string `toml:"listen"`
	// RemoteURL, when set, resolves names against another runlens server
	// instead of the local index.
	RemoteURL    string `toml:"remote_url"`
	SectionsPath string `toml:"sections_path"`
	Project      string `toml:"project"`

	Debounce     Duration `toml:"debounce"`
	CacheTTL     Duration `toml:"cache_ttl"`
	MaxWidgets   int      `toml:"max_widgets"`
	FetchTimeout Duration `toml:"fetch_timeout"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		DBPath:       mustExpand(defaultDBPath),
		Listen:       defaultListen,
		SectionsPath: mustExpand(defaultSectionsPath),
		Project:      defaultProject,
		Debounce:     Duration{defaultDebounce},
		CacheTTL:     Duration{defaultCacheTTL},
		MaxWidgets:   defaultMaxWidgets,
		LogLevel:     "info",
		LogFormat:    "auto",
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error; unknown keys are.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}

	md, err := toml.DecodeFile(resolved, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("config %s: unknown keys %s", resolved, strings.Join(keys, ", "))
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", resolved, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.DBPath = strings.TrimSpace(c.DBPath)
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.DBPath != ":memory:" {
		c.DBPath = mustExpand(c.DBPath)
	}
	c.SectionsPath = strings.TrimSpace(c.SectionsPath)
	if c.SectionsPath == "" {
		c.SectionsPath = defaultSectionsPath
	}
	c.SectionsPath = mustExpand(c.SectionsPath)
	c.Listen = strings.TrimSpace(c.Listen)
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.Project = strings.TrimSpace(c.Project)
	if c.Project == "" {
		c.Project = defaultProject
	}
	c.RemoteURL = strings.TrimSpace(c.RemoteURL)
	if c.MaxWidgets <= 0 {
		c.MaxWidgets = defaultMaxWidgets
	}
	c.LogLevel = strings.TrimSpace(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = "auto"
	}
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if c.Debounce.Duration < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	if c.CacheTTL.Duration < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if c.FetchTimeout.Duration < 0 {
		return fmt.Errorf("fetch_timeout must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "auto", "dev", "json", "text":
	default:
		return fmt.Errorf("unknown log_format %q (want auto, dev, json or text)", c.LogFormat)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
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
