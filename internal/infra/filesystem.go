package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// EnsureDir expands base, joins the extra path parts and creates the directory tree.
func EnsureDir(base string, path ...string) (string, error) {
	root, err := homedir.Expand(base)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", base, err)
	}
	dir := filepath.Join(append([]string{root}, path...)...)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create %q: %w", dir, err)
	}
	return dir, nil
}

// ResolveFile places relative file names under dir and keeps absolute ones.
func ResolveFile(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
