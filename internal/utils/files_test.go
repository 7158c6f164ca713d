package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

func TestSafeWriteFileCreatesParents(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sessions", "aurora", utils.SessionFile)
	if err := utils.SafeWriteFile(p, []byte("{}")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestFindSessionRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, utils.SessionFile), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "charts", "2024")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := utils.FindSessionRoot(nested)
	if err != nil || got != root {
		t.Fatalf("FindSessionRoot = %q, %v; want %q", got, err, root)
	}
	if _, err := utils.FindSessionRoot(t.TempDir()); !errors.Is(err, utils.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
