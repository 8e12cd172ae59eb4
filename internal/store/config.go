package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"

	DefaultServer  = "http://localhost:8080/api"
	DefaultTimeout = 15 * time.Second
	DefaultSource  = "bamao"
)

type Config struct {
	// Server is the API base URL including the common path prefix (e.g. https://host/api).
	Server string `yaml:"server"`

	// Timeout bounds a single request round trip.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// LogFile is where structured logs go. Empty means <config dir>/bamao.log.
	LogFile string `yaml:"log_file,omitempty"`

	// Source is stamped into saved scenes (the browser client uses its page URL).
	Source string `yaml:"source,omitempty"`

	TUI TUIConfig `yaml:"tui,omitempty"`
}

type TUIConfig struct {
	// Theme is one of: light|dark|auto.
	Theme string `yaml:"theme,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Server:  DefaultServer,
		Timeout: DefaultTimeout,
		Source:  DefaultSource,
	}
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.bamao).
	if v := strings.TrimSpace(os.Getenv("BAMAO_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bamao"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadConfig reads config.yaml, falling back to defaults for a missing file or
// missing fields. A file that exists but does not parse is an error.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// ApplyEnv overlays BAMAO_* environment variables onto cfg.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("BAMAO_SERVER")); v != "" {
		c.Server = v
	}
	if v := strings.TrimSpace(os.Getenv("BAMAO_LOG_FILE")); v != "" {
		c.LogFile = v
	}
	if v := strings.TrimSpace(os.Getenv("BAMAO_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("BAMAO_TUI_THEME")); v != "" {
		c.TUI.Theme = v
	}
	c.normalize()
}

// LogPath resolves LogFile against the config dir.
func (c *Config) LogPath() (string, error) {
	if strings.TrimSpace(c.LogFile) != "" {
		return c.LogFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bamao.log"), nil
}

func (c *Config) normalize() {
	c.Server = strings.TrimRight(strings.TrimSpace(c.Server), "/")
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(c.Source) == "" {
		c.Source = DefaultSource
	}
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	// Unique temp name so a concurrent TUI and CLI never clobber each other mid-write.
	return atomicWriteFile(dir, "config.yaml.*.tmp", path, b, 0o600)
}
