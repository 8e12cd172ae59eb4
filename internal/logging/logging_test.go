package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_EmptyPathIsNop(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("dropped")
}

func TestNew_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bamao.log")
	l, err := New(Options{Path: path, Verbose: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Named("api").Debug("request done")
	_ = l.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"message":"request done"`) || !strings.Contains(s, `"logger":"api"`) {
		t.Fatalf("unexpected log content: %s", s)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected non-nil logger")
	}
}
