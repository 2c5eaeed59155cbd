// Package execcache caches resolved executable paths for the life of a
// process, invalidating an entry the moment a command using it fails with
// "executable not found". This replaces the teacher's package-level
// executable caches with an explicit, testable object per the spec's
// §9 design note on eliminating global module state.
package execcache

import (
	"errors"
	"os/exec"
	"sync"
)

// Cache resolves and remembers executable paths by logical name (e.g.
// "git", "gh", "glab").
type Cache struct {
	mu    sync.Mutex
	paths map[string]string
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{paths: make(map[string]string)}
}

// Resolve returns the absolute path of name, looking it up via exec.LookPath
// on first use and reusing the cached value afterward.
func (c *Cache) Resolve(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.paths[name]; ok {
		return path, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", err
	}
	c.paths[name] = path
	return path, nil
}

// Invalidate drops any cached path for name, forcing the next Resolve to
// re-run LookPath. Call this whenever a command using name fails with
// ENOENT (the executable may have moved, been installed, or removed since).
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.paths, name)
}

// IsNotFound reports whether err indicates the executable itself is
// missing, as opposed to a normal non-zero exit from running it.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *exec.Error
	if errors.As(err, &notFound) {
		return errors.Is(notFound.Err, exec.ErrNotFound)
	}
	return errors.Is(err, exec.ErrNotFound)
}
