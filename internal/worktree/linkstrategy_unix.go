//go:build !windows

package worktree

import (
	"os"
	"path/filepath"
)

// linkDependency symlinks src into dst on POSIX platforms. A missing
// source is not an error — the dependency simply hasn't been installed in
// the parent project yet.
func linkDependency(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	if _, err := os.Lstat(dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Symlink(src, dst)
}
