package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger_CreatesDirAndWritesJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := NewLogger(Options{Dir: dir})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	log.Info("test_message_from_logging_test")
	log.Debug("debug_is_filtered_at_info")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, "sitewatch.log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !bytes.Contains(b, []byte(`"msg":"test_message_from_logging_test"`)) || !bytes.Contains(b, []byte(`"ts":`)) {
		t.Fatalf("unexpected log content: %s", b)
	}
	if bytes.Contains(b, []byte("debug_is_filtered_at_info")) {
		t.Fatal("debug line written at info level")
	}
}

func TestNewLogger_Level(t *testing.T) {
	log, err := NewLogger(Options{Dir: t.TempDir(), Level: "debug", Console: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug level not enabled")
	}
	if _, err := NewLogger(Options{Dir: t.TempDir(), Level: "loud"}); err == nil {
		t.Fatal("want error for unknown level")
	}
}
