package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("KANBAN_CONFIG_DIR", cfgDir)

	seed := &GlobalConfig{APIURL: "http://seed.example/api", CurrentBoardID: "seed"}
	if err := SaveConfig(seed); err != nil {
		t.Fatalf("SaveConfig(seed): %v", err)
	}

	const n = 64
	errCh := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			cfg, err := LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			cfg.CurrentBoardID = fmt.Sprintf("board-%d", i)
			cfg.TimeoutSeconds = i + 1
			if err := SaveConfig(cfg); err != nil {
				errCh <- err
				return
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}
	if t.Failed() {
		return
	}

	// Ensure the on-disk config is valid JSON.
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config.json: %v", err)
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("config.json corrupted/unparseable: %v\nraw:\n%s", err, string(raw))
	}

	// Ensure we didn't leave behind temp files.
	ents, err := os.ReadDir(cfgDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, "config.json.") && strings.HasSuffix(name, ".tmp") {
			t.Fatalf("leftover temp file: %s", name)
		}
	}

	// Best-effort backup should be parseable if present.
	if bak, err := os.ReadFile(path + ".bak"); err == nil && len(bak) > 0 {
		var bakCfg GlobalConfig
		if err := json.Unmarshal(bak, &bakCfg); err != nil {
			t.Fatalf("config.json.bak corrupted/unparseable: %v\nraw:\n%s", err, string(bak))
		}
	}
}

func TestLoadConfig_MissingFileIsEmpty(t *testing.T) {
	t.Setenv("KANBAN_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.EffectiveAPIURL() != DefaultAPIURL {
		t.Fatalf("EffectiveAPIURL = %q", cfg.EffectiveAPIURL())
	}
	if cfg.Timeout() != DefaultTimeoutSeconds*time.Second {
		t.Fatalf("Timeout = %v", cfg.Timeout())
	}
	if cfg.RateLimit() != DefaultRequestsPerSecond {
		t.Fatalf("RateLimit = %v", cfg.RateLimit())
	}
}

func TestGlobalConfig_EffectiveAPIURL_TrimsTrailingSlash(t *testing.T) {
	cfg := &GlobalConfig{APIURL: " https://boards.example.com/api/ "}
	if got := cfg.EffectiveAPIURL(); got != "https://boards.example.com/api" {
		t.Fatalf("EffectiveAPIURL = %q", got)
	}
}
