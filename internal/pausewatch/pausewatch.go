// Package pausewatch implements the §6.3 pause/resume protocol: zero-byte
// marker files in a spec directory that cooperatively block the coder
// loop between turns. It mirrors the teacher's fsnotify-plus-stat-poll
// notification design, retargeted from kill/pause signal files to the
// spec's PAUSE/RATE_LIMIT_PAUSE/AUTH_PAUSE/RESUME markers.
package pausewatch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	Pause          = "PAUSE"
	RateLimitPause = "RATE_LIMIT_PAUSE"
	AuthPause      = "AUTH_PAUSE"
	Resume         = "RESUME"
)

// pausePollInterval is how often WaitWhilePaused re-checks PAUSE; there is
// no deadline since §6.3 says "wait (no timeout)" for the plain PAUSE marker.
const pausePollInterval = 1 * time.Second

// Watcher observes a spec directory for the pause marker files. It uses
// fsnotify when available and always falls back to a stat poll, since a
// watch can silently miss events on some filesystems (network mounts,
// some container overlay fs).
type Watcher struct {
	dir string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a Watcher rooted at specDir, starting a best-effort fsnotify
// watch. A failure to start the watch is not fatal — Exists falls back to
// stat polling either way.
func New(specDir string) *Watcher {
	w := &Watcher{dir: specDir}
	fw, err := fsnotify.NewWatcher()
	if err == nil {
		if err := fw.Add(specDir); err == nil {
			w.watcher = fw
		} else {
			fw.Close()
		}
	}
	return w
}

// Close releases the underlying fsnotify watch, if any.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// Exists reports whether the named marker file is currently present,
// always consulting the filesystem directly (the fsnotify channel is
// drained opportunistically but never the sole source of truth).
func (w *Watcher) Exists(name string) bool {
	w.drainEvents()
	_, err := os.Stat(filepath.Join(w.dir, name))
	return err == nil
}

func (w *Watcher) drainEvents() {
	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil {
		return
	}
	for {
		select {
		case <-fw.Events:
		case <-fw.Errors:
		default:
			return
		}
	}
}

// Create writes a zero-byte marker file.
func Create(specDir, name string) error {
	return os.WriteFile(filepath.Join(specDir, name), nil, 0o644)
}

// Clear removes a marker file if present; a missing file is not an error.
func Clear(specDir, name string) error {
	err := os.Remove(filepath.Join(specDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// WaitWhilePaused blocks for as long as the PAUSE marker is present
// (§6.3: "Between turns, if PAUSE exists → wait (no timeout)"). stop, if
// non-nil, aborts the wait early.
func WaitWhilePaused(specDir string, stop <-chan struct{}) {
	w := New(specDir)
	defer w.Close()

	ticker := time.NewTicker(pausePollInterval)
	defer ticker.Stop()

	for w.Exists(Pause) {
		select {
		case <-ticker.C:
		case <-stop:
			return
		}
	}
}

// WaitForResume blocks, polling at interval, until RESUME appears or
// maxWait elapses (whichever first); it always clears both name and
// RESUME before returning true. stop, if non-nil, is checked each poll
// and aborts the wait early with (false, nil).
func WaitForResume(specDir, name string, interval, maxWait time.Duration, stop <-chan struct{}) (bool, error) {
	w := New(specDir)
	defer w.Close()

	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if w.Exists(Resume) {
			if err := Clear(specDir, name); err != nil {
				return false, err
			}
			if err := Clear(specDir, Resume); err != nil {
				return false, err
			}
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ticker.C:
		case <-stop:
			return false, nil
		}
	}
}
