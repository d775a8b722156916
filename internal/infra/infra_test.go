package infra

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecoverConvertsPanic(t *testing.T) {
	t.Parallel()

	err := Recover("update-1", func() error {
		panic("kaboom")
	})
	if err == nil || !strings.Contains(err.Error(), "kaboom") || !strings.Contains(err.Error(), "update-1") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecoverPassesError(t *testing.T) {
	t.Parallel()

	want := errors.New("plain")
	if err := Recover("job", func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("unexpected error: got %v want %v", err, want)
	}
}

func TestEnsureDirAndResolveFile(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dir, err := EnsureDir(base, "audit")
	if err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Fatalf("expected directory at %s: %v", dir, err)
	}
	if got := ResolveFile(dir, "audit.db"); got != filepath.Join(dir, "audit.db") {
		t.Fatalf("unexpected relative resolve: %s", got)
	}
	if got := ResolveFile(dir, "/var/log/x.log"); got != "/var/log/x.log" {
		t.Fatalf("unexpected absolute resolve: %s", got)
	}
}
