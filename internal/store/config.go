package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultAPIURL            = "http://localhost:5000/api"
	DefaultTimeoutSeconds    = 15
	DefaultRequestsPerSecond = 10
)

type GlobalConfig struct {
	// APIURL is the REST backend base URL (e.g. https://boards.example.com/api).
	APIURL string `json:"apiUrl,omitempty"`

	// TimeoutSeconds bounds every remote call. A timeout is handled like any other remote failure.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`

	// RequestsPerSecond throttles outgoing requests; 0 uses the default, negative disables.
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty"`

	// CurrentBoardID is the board opened by `kanban` with no arguments.
	CurrentBoardID string `json:"currentBoardId,omitempty"`

	// TUI holds optional user preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Profile is the appearance profile id ("default", "mono").
	Profile string `json:"profile,omitempty"`
	// ColumnWidth is the width of one list column in cells.
	ColumnWidth int `json:"columnWidth,omitempty"`
}

func (c *GlobalConfig) EffectiveAPIURL() string {
	if c == nil || strings.TrimSpace(c.APIURL) == "" {
		return DefaultAPIURL
	}
	return strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
}

func (c *GlobalConfig) Timeout() time.Duration {
	if c == nil || c.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *GlobalConfig) RateLimit() float64 {
	if c == nil || c.RequestsPerSecond == 0 {
		return DefaultRequestsPerSecond
	}
	return c.RequestsPerSecond
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.kanban).
	if v := strings.TrimSpace(os.Getenv("KANBAN_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".kanban"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AtomicWriteFile writes b to path through a unique temp file + rename.
func AtomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
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

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Keep a copy of the previous config; errors here must not block normal usage.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = AtomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}

	// Unique temp names keep concurrent writers (CLI + TUI) from clobbering each other.
	return AtomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}
