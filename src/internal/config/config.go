// Package config loads paperman's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables consulted by Load.
const (
	EnvConfig = "PAPERMAN_CONFIG"
	EnvDB     = "PAPERMAN_DB"
)

const defaultConfigPath = "~/.config/paperman/config.toml"

// Config is the decoded configuration file.
type Config struct {
	Store   Store   `toml:"store"`
	Chooser Command `toml:"chooser"`
	Opener  Command `toml:"opener"`
	DOI     DOI     `toml:"doi"`
	Logging Logging `toml:"logging"`
}

// Store locates the citation database.
type Store struct {
	Path string `toml:"path"`
	// GitCommit commits the store file after every write when it lives in
	// a git work tree.
	GitCommit bool `toml:"git_commit"`
	// GitPush pushes after each commit; it needs GitCommit.
	GitPush bool `toml:"git_push"`
}

// Command is an external program with its leading arguments.
type Command struct {
	Command []string `toml:"command"`
}

// DOI configures doi.org lookups.
type DOI struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging configures diagnostics on stderr.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Store:   Store{Path: "~/.paperman/db.json"},
		Chooser: Command{Command: []string{"rofi", "-dmenu", "-format", "i", "-multi-select", "-i"}},
		Opener:  Command{Command: []string{"xdg-open"}},
		DOI:     DOI{BaseURL: "https://doi.org/", TimeoutSeconds: 15},
		Logging: Logging{Level: "warn", Format: "text"},
	}
}

// Timeout is the DOI request timeout.
func (d DOI) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Load reads the configuration at path, or at $PAPERMAN_CONFIG, or at
// ~/.config/paperman/config.toml, in that order. A missing file yields the
// defaults. It returns the resolved path and whether the file existed.
// $PAPERMAN_DB overrides store.path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = defaultConfigPath
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, "", false, err
	}

	exists := true
	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return nil, "", false, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if db := strings.TrimSpace(os.Getenv(EnvDB)); db != "" {
		cfg.Store.Path = db
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// SetStorePath replaces store.path, expanding ~.
func (c *Config) SetStorePath(p string) error {
	expanded, err := ExpandPath(p)
	if err != nil {
		return err
	}
	c.Store.Path = expanded
	return nil
}

func (c *Config) normalize() error {
	expanded, err := ExpandPath(strings.TrimSpace(c.Store.Path))
	if err != nil {
		return err
	}
	c.Store.Path = expanded
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.DOI.BaseURL = strings.TrimSpace(c.DOI.BaseURL)
	return nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("store.path must be set")
	}
	if c.Store.GitPush && !c.Store.GitCommit {
		return errors.New("store.git_push needs store.git_commit")
	}
	if len(c.Chooser.Command) == 0 || strings.TrimSpace(c.Chooser.Command[0]) == "" {
		return errors.New("chooser.command must name a program")
	}
	if len(c.Opener.Command) == 0 || strings.TrimSpace(c.Opener.Command[0]) == "" {
		return errors.New("opener.command must name a program")
	}
	if c.DOI.TimeoutSeconds <= 0 {
		return fmt.Errorf("doi.timeout_seconds must be positive, got %d", c.DOI.TimeoutSeconds)
	}
	if !strings.HasPrefix(c.DOI.BaseURL, "http://") && !strings.HasPrefix(c.DOI.BaseURL, "https://") {
		return fmt.Errorf("doi.base_url must be an http(s) URL, got %q", c.DOI.BaseURL)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
