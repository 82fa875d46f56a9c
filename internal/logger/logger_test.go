package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/sirupsen/logrus"
)

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "libctl.log")
	closer, err := logger.Init("debug", path)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	logger.Log.WithField("book_id", "B1").Debug("fetched")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "book_id=B1") {
		t.Errorf("log output missing field: %q", string(data))
	}
	if logger.Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logger.Log.GetLevel())
	}
}

func TestInit_BadLevel(t *testing.T) {
	if _, err := logger.Init("loud", ""); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInit_NoFile(t *testing.T) {
	closer, err := logger.Init("info", "")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
