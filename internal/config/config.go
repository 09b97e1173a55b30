// Package config handles loading and managing beeper-texts configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ArchiveConfig locates the Beeper Desktop data directory and the files in it.
type ArchiveConfig struct {
	Root     string `toml:"root"`      // BeeperTexts directory
	IndexDB  string `toml:"index_db"`  // primary store, relative to Root
	MediaDir string `toml:"media_dir"` // media cache, relative to Root
}

// QueryConfig holds tunables for the query layer.
type QueryConfig struct {
	ContextWindow      Duration `toml:"context_window"`       // ± window around a search match
	ContextLimit       int      `toml:"context_limit"`        // max messages in a search context window
	PersonContextLimit int      `toml:"person_context_limit"` // max messages in a person context window
	ImageMaxDimension  int      `toml:"image_max_dimension"`  // longest edge of optimized images
	ImageQuality       int      `toml:"image_quality"`        // JPEG quality of optimized images
	MaxInlineBytes     int64    `toml:"max_inline_bytes"`     // larger media are returned by path
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort        int      `toml:"api_port"`
	BindAddr       string   `toml:"bind_addr"`
	APIKey         string   `toml:"api_key"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst"`
	CORSOrigins    []string `toml:"cors_origins"` // empty disables CORS
}

// Config represents the beeper-texts configuration.
type Config struct {
	Archive ArchiveConfig `toml:"archive"`
	Query   QueryConfig   `toml:"query"`
	Server  ServerConfig  `toml:"server"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// Duration is a time.Duration that decodes from TOML strings like "90m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultHome returns the default beeper-texts home directory.
// Respects BEEPER_TEXTS_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("BEEPER_TEXTS_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".beeper-texts"
	}
	return filepath.Join(home, ".beeper-texts")
}

// DefaultArchiveRoot returns where Beeper Desktop keeps its data on this
// platform. BEEPER_ARCHIVE overrides the guess.
func DefaultArchiveRoot() string {
	if p := os.Getenv("BEEPER_ARCHIVE"); p != "" {
		return expandPath(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "BeeperTexts")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "BeeperTexts")
		}
		return filepath.Join(home, "AppData", "Roaming", "BeeperTexts")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "BeeperTexts")
		}
		return filepath.Join(home, ".config", "BeeperTexts")
	}
}

// NewDefaultConfig returns a configuration populated with defaults for homeDir.
func NewDefaultConfig(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Archive: ArchiveConfig{
			Root:     DefaultArchiveRoot(),
			IndexDB:  "index.db",
			MediaDir: "media",
		},
		Query: QueryConfig{
			ContextWindow:      Duration{time.Hour},
			ContextLimit:       10,
			PersonContextLimit: 20,
			ImageMaxDimension:  1568,
			ImageQuality:       85,
			MaxInlineBytes:     50 * 1024 * 1024,
		},
		Server: ServerConfig{
			APIPort:        8787,
			BindAddr:       "127.0.0.1",
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
	}
}

// Load reads the configuration from the specified file.
// If path is empty, uses config.toml inside homeDir (or DefaultHome when
// homeDir is empty). An explicit path must exist; the default one is optional.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	if homeDir == "" {
		homeDir = DefaultHome()
		if explicit {
			homeDir = filepath.Dir(expandPath(path))
		}
	} else {
		homeDir = expandPath(homeDir)
	}

	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	}
	path = expandPath(path)

	cfg := NewDefaultConfig(homeDir)
	cfg.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, decodeError(err)
	}

	cfg.Archive.Root = expandPath(cfg.Archive.Root)
	if cfg.Archive.IndexDB == "" {
		cfg.Archive.IndexDB = "index.db"
	}
	if cfg.Archive.MediaDir == "" {
		cfg.Archive.MediaDir = "media"
	}

	return cfg, nil
}

// decodeError adds a hint to TOML errors that are almost always caused by
// Windows paths written with backslashes inside double quotes.
func decodeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config: %w\n\nhint: use forward slashes (C:/Users/me) or single quotes ('C:\\Users\\me') for paths", err)
	}
	return fmt.Errorf("decode config: %w", err)
}

// ConfigFilePath returns the config file path Load looked at.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// IndexPath returns the path to the primary store.
func (c *Config) IndexPath() string {
	return resolveUnder(c.Archive.Root, c.Archive.IndexDB)
}

// MediaPath returns the path to the media directory.
func (c *Config) MediaPath() string {
	return resolveUnder(c.Archive.Root, c.Archive.MediaDir)
}

// ValidateSecure rejects an API server that would listen beyond loopback
// without an API key.
func (s ServerConfig) ValidateSecure() error {
	if s.APIKey != "" {
		return nil
	}
	if s.BindAddr == "" || isLoopback(s.BindAddr) {
		return nil
	}
	return fmt.Errorf("refusing to bind %s without [server] api_key; set an API key or bind to 127.0.0.1", s.BindAddr)
}

func isLoopback(addr string) bool {
	if addr == "localhost" {
		return true
	}
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

func resolveUnder(root, p string) string {
	p = expandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
