package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MergeLock is a filesystem advisory mutex guarding a worktree's merge
// output directory against two orchestrator invocations running
// concurrently. No flock-style library appears anywhere in the reference
// pack, and Go's stdlib has no portable advisory-lock primitive either, so
// this uses the same PID-stamped-file idiom the teacher's checkpoint and
// rollback managers use for their own on-disk state (os.O_EXCL create,
// staleness reclaim), rather than a bare mutex — a process-external lock
// needs to survive the orchestrator process restarting.
type MergeLock struct {
	path  string
	stale time.Duration
}

// NewMergeLock returns a lock backed by a file at path, reclaimable once
// it's older than staleAfter (a crashed holder's lock is never released).
func NewMergeLock(path string, staleAfter time.Duration) *MergeLock {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &MergeLock{path: path, stale: staleAfter}
}

// Acquire creates the lock file, reclaiming a stale one left behind by a
// dead process. Returns an error if a live holder already owns it.
func (l *MergeLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	if info, err := os.Stat(l.path); err == nil {
		if time.Since(info.ModTime()) > l.stale {
			if err := os.Remove(l.path); err != nil {
				return fmt.Errorf("reclaim stale merge lock: %w", err)
			}
		} else {
			return fmt.Errorf("merge lock held by %s", l.readHolder())
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("merge lock held by %s", l.readHolder())
		}
		return fmt.Errorf("create merge lock: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	return err
}

// Release removes the lock file.
func (l *MergeLock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (l *MergeLock) readHolder() string {
	b, err := os.ReadFile(l.path)
	if err != nil {
		return "unknown pid"
	}
	return "pid " + strings.TrimSpace(string(b))
}
