package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sentinelsoft/rulegraph/pkg/errors"
	"github.com/sentinelsoft/rulegraph/pkg/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rulegraph.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
paths = ["/etc/rules", "/opt/rules"]
block_size = 50
addr = ":9000"

[store]
backend = "redis"
redis_addr = "redis.internal:6379"
redis_db = 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if want := []string{"/etc/rules", "/opt/rules"}; !reflect.DeepEqual(cfg.Paths, want) {
		t.Errorf("paths = %v, want %v", cfg.Paths, want)
	}
	if cfg.BlockSize != 50 || cfg.Addr != ":9000" {
		t.Errorf("block_size=%d addr=%q", cfg.BlockSize, cfg.Addr)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.RedisAddr != "redis.internal:6379" || cfg.Store.RedisDB != 2 {
		t.Errorf("store = %+v", cfg.Store)
	}
	// Unset fields keep their defaults.
	if cfg.Store.Dir != Default().Store.Dir {
		t.Errorf("dir = %q, want default", cfg.Store.Dir)
	}
}

func TestLoadMissingDefaultPathUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("Load() error = %v, want INVALID_PATH", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "pathz = [\"typo\"]\n")
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Load() error = %v, want INVALID_INPUT", err)
	}
}

func TestOpenStore(t *testing.T) {
	cfg := Default()
	cfg.Store.Dir = t.TempDir()
	s, err := cfg.OpenStore(context.Background())
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*store.FileStore); !ok {
		t.Errorf("backend = %T, want *store.FileStore", s)
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "etcd"
	if _, err := cfg.OpenStore(context.Background()); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("OpenStore() error = %v, want UNSUPPORTED", err)
	}
}
