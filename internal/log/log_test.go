package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cplcurtain.log")

	if err := InitWithFile(false, FileOptions{Path: path, MaxSizeMB: 1}); err != nil {
		t.Fatalf("InitWithFile: %v", err)
	}
	Infow("session loaded", "profiles", 42)
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"profiles":42`) {
		t.Errorf("log file missing structured field: %s", data)
	}
}

func TestInitWithoutFile(t *testing.T) {
	if err := InitWithFile(true, FileOptions{}); err != nil {
		t.Fatalf("InitWithFile: %v", err)
	}
	if GetSugaredLogger() == nil || GetZapLogger() == nil {
		t.Fatal("logger not initialized")
	}
}
