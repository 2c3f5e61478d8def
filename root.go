package devserve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrRootNotFound = errors.New("public directory not found")

// PublicDir returns the public directory belonging to anchor, which is the
// path of the running binary: <dir of anchor>/../public.
func PublicDir(anchor string) string {
	return filepath.Join(filepath.Dir(anchor), "..", "public")
}

// ValidateRoot checks that dir is an existing directory and returns its
// absolute path.
func ValidateRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w at %s: %w", ErrRootNotFound, dir, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w at %s: %w", ErrRootNotFound, abs, err)
	}
	if !st.IsDir() {
		return "", fmt.Errorf("%w at %s: not a directory", ErrRootNotFound, abs)
	}
	return abs, nil
}
