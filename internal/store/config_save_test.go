package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("BAMAO_CONFIG_DIR", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server != DefaultServer || cfg.Timeout != DefaultTimeout || cfg.Source != DefaultSource {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestLoadConfig_YAMLOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BAMAO_CONFIG_DIR", dir)

	body := "server: https://draw.example.com/api/\ntimeout: 3s\ntui:\n  theme: dark\n"
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server != "https://draw.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Server)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", cfg.Timeout)
	}
	if cfg.TUI.Theme != "dark" {
		t.Fatalf("expected theme dark, got %q", cfg.TUI.Theme)
	}
	if cfg.Source != DefaultSource {
		t.Fatalf("expected default source, got %q", cfg.Source)
	}
}

func TestLoadConfig_InvalidYAMLIsError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BAMAO_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("BAMAO_SERVER", "http://127.0.0.1:9/api")
	t.Setenv("BAMAO_TIMEOUT", "250ms")
	t.Setenv("BAMAO_LOG_FILE", "/tmp/bamao-test.log")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Server != "http://127.0.0.1:9/api" || cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("env not applied: %#v", cfg)
	}
	p, err := cfg.LogPath()
	if err != nil || p != "/tmp/bamao-test.log" {
		t.Fatalf("unexpected log path %q (%v)", p, err)
	}
}

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	t.Setenv("BAMAO_CONFIG_DIR", t.TempDir())

	const n = 32
	errCh := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg := DefaultConfig()
			cfg.Timeout = time.Duration(i+1) * time.Second
			if err := SaveConfig(cfg); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig after concurrent writes: %v", err)
	}
	if cfg.Timeout <= 0 || cfg.Server != DefaultServer {
		t.Fatalf("unexpected config after concurrent writes: %#v", cfg)
	}
}
