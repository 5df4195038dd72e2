package render

import (
	"os"
	"path/filepath"
)

// workspace is the per-request temporary directory. It is created on first
// use and removed by cleanup.
type workspace struct {
	parent string
	dir    string
}

func (w *workspace) path(name string) (string, error) {
	if w.dir == "" {
		dir, err := os.MkdirTemp(w.parent, "hydra-render-*")
		if err != nil {
			return "", err
		}
		w.dir = dir
	}
	return filepath.Join(w.dir, name), nil
}

// cleanup removes the directory. Errors are logged, never returned.
func (w *workspace) cleanup() {
	if w.dir == "" {
		return
	}
	if err := os.RemoveAll(w.dir); err != nil {
		logger.Printf("Failed to remove %s: %v", w.dir, err)
		return
	}
	logger.Printf("Removed %s", w.dir)
}
