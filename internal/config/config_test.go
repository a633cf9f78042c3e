package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Cache.Store.Backend != "fs" || cfg.Cache.Store.Dir != "cache" {
		t.Errorf("unexpected default store %+v", cfg.Cache.Store)
	}
	if cfg.Model.MaxBatch != 1 || cfg.Model.Parallelism != 4 {
		t.Errorf("unexpected model defaults %+v", cfg.Model)
	}
	if cfg.Cache.Memo.Backend != "ristretto" || cfg.Cache.Memo.SizeMB <= 0 {
		t.Errorf("default store should be memoized, memo = %+v", cfg.Cache.Memo)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")

	path := writeConfig(t, `
provider:
  name: fireworks
  api_key: ${TEST_API_KEY}
  timeout: 30s
model:
  name: llama-v3
  alias: llama
  temperature: 0.7
  params:
    top_p: "0.9"
  max_batch: 8
cache:
  store:
    backend: fs
    dir: ./slice
  inner:
    backend: sqlite
    path: ./big.db
  replication: true
  memo:
    backend: ristretto
    codec: msgpack
log:
  backend: zap
  level: debug
metrics:
  listen: ":9100"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "sk-test-123" {
		t.Errorf("env var not expanded: got %s", cfg.Provider.APIKey)
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Provider.Timeout)
	}
	if cfg.Model.Params["top_p"] != "0.9" || cfg.Model.MaxBatch != 8 || cfg.Model.Parallelism != 4 {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Cache.Inner == nil || cfg.Cache.Inner.Path != "./big.db" || !cfg.Cache.Replication {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.Memo.Codec != "msgpack" || cfg.Log.Backend != "zap" || cfg.Metrics.Listen != ":9100" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadReportsAllProblems(t *testing.T) {
	path := writeConfig(t, `
model:
  max_batch: 0
cache:
  store:
    backend: redis
  memo:
    backend: memcached
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"provider", "model: name", "max_batch", "redis backend needs addr", "memcached"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error lacks %q: %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
