package memory

import (
	"math/rand"
	"strings"
	"time"

	"github.com/autobuild/autobuild/internal/coder"
	"github.com/autobuild/autobuild/internal/retry"
)

// jitterFraction is how much of retry.Backoff's delay is randomized away,
// per §5: concurrent agent sessions writing insights for the same repo
// must not retry in lockstep against a single SQLite file.
const jitterFraction = 0.5

// RetryingStore wraps a Store so that writes contending with another
// agent's SQLITE_BUSY hold retry with jittered exponential backoff
// instead of failing the subtask outright.
type RetryingStore struct {
	*Store
	maxAttempts int
}

var _ coder.MemoryStore = (*RetryingStore)(nil)

// WithRetry returns s wrapped with the §5 jittered-backoff write path.
func WithRetry(s *Store, maxAttempts int) *RetryingStore {
	if maxAttempts <= 0 {
		maxAttempts = retry.DefaultMaxAttempts
	}
	return &RetryingStore{Store: s, maxAttempts: maxAttempts}
}

// Save retries Store.Save on SQLite contention, jittering retry.Backoff's
// delay so concurrent writers spread their retries out.
func (r *RetryingStore) Save(insight coder.Insight) error {
	cfg := retry.Config{MaxAttempts: r.maxAttempts, Sleep: jitteredSleep}
	_, err := retry.WithBackoff(cfg, isBusy, func(int) (struct{}, error) {
		return struct{}{}, r.Store.Save(insight)
	})
	return err
}

// jitteredSleep sleeps retry.Backoff's nominal delay minus up to
// jitterFraction of it, taken off a random point rather than added on top
// so the wrapped retry.WithBackoff caller's delay argument stays an upper
// bound.
func jitteredSleep(d time.Duration) {
	jitter := time.Duration(rand.Float64() * jitterFraction * float64(d))
	time.Sleep(d - jitter)
}

// isBusy reports whether err looks like SQLite's "the database is in use
// by another connection" family of transient errors.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked")
}
