package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/poi/internal/apperr"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "notes")
	cfg.App.LogLevel = "error"
	return cfg
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("expected error without config")
	}
}

func TestNewBeforeInit(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(WithConfig(cfg)); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestInitThenNew(t *testing.T) {
	cfg := testConfig(t)

	created, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !created {
		t.Error("first Init should create the store")
	}
	for _, dir := range []string{cfg.Store.Path, cfg.Store.StateDir(), cfg.Store.BackupsDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("missing directory %s: %v", dir, err)
		}
	}

	created, err = Init(cfg)
	if err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if created {
		t.Error("second Init should be a no-op")
	}

	app, err := New(WithConfig(cfg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()
	if app.Service() == nil {
		t.Error("service not wired")
	}
}

func TestBackup(t *testing.T) {
	cfg := testConfig(t)
	if _, err := Init(cfg); err != nil {
		t.Fatal(err)
	}
	app, err := New(WithConfig(cfg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	n, err := app.Service().Add(nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := app.Backup(n, []byte("pre-edit")); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Store.BackupsDir(), filepath.Base(n.Path)))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != "pre-edit" {
		t.Errorf("backup content = %q", data)
	}
}
