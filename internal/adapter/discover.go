package adapter

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNotFound is returned by Discover when no RenderDoc installation can
// be located by any of the search strategies.
var ErrNotFound = errors.New("adapter: renderdoc installation not found")

// systemSearchPaths lists the well-known Linux install locations for a
// RenderDoc installation.
var systemSearchPaths = []string{
	"/usr/lib/renderdoc",
	"/usr/local/lib/renderdoc",
}

// Discover locates a RenderDoc installation directory: an explicit
// environment override first, then well-known system paths, then a
// directory alongside the renderdoccmd binary on PATH.
func Discover() (string, error) {
	if p := os.Getenv("RENDERDOC_PYTHON_PATH"); p != "" {
		if dirExists(p) {
			return p, nil
		}
	}

	for _, p := range systemSearchPaths {
		if dirExists(p) {
			return p, nil
		}
	}

	if bin, err := exec.LookPath("renderdoccmd"); err == nil {
		dir := filepath.Dir(bin)
		if dirExists(dir) {
			return dir, nil
		}
	}

	return "", ErrNotFound
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
