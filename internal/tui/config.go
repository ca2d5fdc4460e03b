package tui

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultServerURL = "http://localhost:5000"
	DefaultPageSize  = 10
)

// Config is the terminal client configuration, read from
// $XDG_CONFIG_HOME/todo-notes/config.toml:
//
//	server_url = "http://localhost:5000"
//	page_size  = 10
type Config struct {
	ServerURL string `toml:"server_url"`
	PageSize  int    `toml:"page_size"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL: DefaultServerURL,
		PageSize:  DefaultPageSize,
	}
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "todo-notes", "config.toml"), nil
}

// LoadConfig reads path over the defaults. A missing file is not an error
// when optional is set; the defaults are returned as-is.
func LoadConfig(path string, optional bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("server_url must not be empty")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	return nil
}
