package common

import (
	"log/slog"
	"os"
)

// WithTempDir creates a scratch directory, runs fn inside it and removes the
// directory before returning, whatever fn returns or panics with.
func WithTempDir(pattern string, fn func(dir string) error) error {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(dir)
	return fn(dir)
}
