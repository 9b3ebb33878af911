package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liliang-cn/ragdesk/internal/config"
)

func TestNewWritesFiles(t *testing.T) {
	dir := t.TempDir()
	log, err := New(config.LogConfig{Level: "info", Dir: dir, Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("hello")
	log.Error("boom")
	_ = log.Sync()

	app, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("read app.log: %v", err)
	}
	if !strings.Contains(string(app), "hello") || !strings.Contains(string(app), "boom") {
		t.Errorf("app.log = %q, want both entries", app)
	}

	errs, err := os.ReadFile(filepath.Join(dir, "errors.log"))
	if err != nil {
		t.Fatalf("read errors.log: %v", err)
	}
	if strings.Contains(string(errs), "hello") {
		t.Errorf("errors.log contains info entry: %q", errs)
	}
	if !strings.Contains(string(errs), "boom") {
		t.Errorf("errors.log = %q, want error entry", errs)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("New with invalid level should fail")
	}
}
