// Package cliconfig handles padctl settings persistence.
// Settings are stored in ~/.config/padctl/config.toml.
package cliconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings padctl reads before every command.
type Config struct {
	Server      string `toml:"server"`
	SyncMode    string `toml:"sync_mode"`
	AdminSecret string `toml:"admin_secret,omitempty"`
	Style       string `toml:"style"`
	LastRoom    string `toml:"last_room,omitempty"`
}

const (
	defaultConfigPath = "~/.config/padctl/config.toml"
	defaultServer     = "http://localhost:8080"
	defaultSyncMode   = "auto"
	defaultStyle      = "dracula"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the settings used when no file exists.
func Default() Config {
	return Config{
		Server:   defaultServer,
		SyncMode: defaultSyncMode,
		Style:    defaultStyle,
	}
}

// Load reads settings from path, falling back to defaults when the file is missing.
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

	if err := toml.Unmarshal(bytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Server = strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	cfg.SyncMode = strings.ToLower(strings.TrimSpace(cfg.SyncMode))
	if cfg.SyncMode == "" {
		cfg.SyncMode = defaultSyncMode
	}
	if strings.TrimSpace(cfg.Style) == "" {
		cfg.Style = defaultStyle
	}

	return cfg, nil
}

// Save writes settings to path, creating directories as needed.
func Save(path string, cfg Config) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	bytes, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// admin_secret may be present
	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
