//go:build windows

package worktree

import (
	"os"
	"os/exec"
	"path/filepath"
)

// linkDependency creates a directory junction on Windows rather than a
// symlink: junctions don't require Administrator or Developer Mode, unlike
// os.Symlink on this platform.
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
	return exec.Command("cmd", "/c", "mklink", "/J", dst, src).Run()
}
