package recovery

import (
	"fmt"
	"time"

	"github.com/autobuild/autobuild/internal/errs"
	"github.com/autobuild/autobuild/internal/gitrun"
)

// RecordAttempt appends one entry to the subtask's attempt ledger,
// truncating approach/error per §4.4 and sanitizing the error per §7.
func (m *Manager) RecordAttempt(subtaskID, session string, success bool, approach, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := Attempt{
		Session:   session,
		Success:   success,
		Approach:  truncate(approach, maxApproachLen),
		Timestamp: time.Now(),
	}
	if errMsg != "" {
		a.Error = truncate(errs.Sanitize(errMsg), maxErrorLen)
	}
	m.attempts[subtaskID] = append(m.attempts[subtaskID], a)
	return m.persistAttempts()
}

// RecordGoodCommit prepends a new rollback target to the good-commit
// ledger (newest-first, per §8).
func (m *Manager) RecordGoodCommit(sha, subtaskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := GoodCommit{SHA: sha, SubtaskID: subtaskID, Timestamp: time.Now()}
	m.goodCommits = append([]GoodCommit{entry}, m.goodCommits...)
	return m.persistGoodCommits()
}

// MarkSubtaskStuck adds or updates the stuck-registry entry for a subtask.
func (m *Manager) MarkSubtaskStuck(subtaskID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stuck[subtaskID] = StuckEntry{SubtaskID: subtaskID, Reason: reason}
	return m.persistStuck()
}

// IsStuck reports whether a subtask is in the stuck registry.
func (m *Manager) IsStuck(subtaskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.stuck[subtaskID]
	return ok
}

// AttemptCount is a convenience accessor over the attempt ledger.
func (m *Manager) AttemptCount(subtaskID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts[subtaskID])
}

// LatestGoodCommit returns the newest good-commit entry, or nil if none
// has been recorded.
func (m *Manager) LatestGoodCommit() *GoodCommit {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.goodCommits) == 0 {
		return nil
	}
	c := m.goodCommits[0]
	return &c
}

// RollbackToCommit performs `git reset --hard <sha>` in the project root.
func (m *Manager) RollbackToCommit(git *gitrun.ExecRunner, sha string) (bool, error) {
	if err := git.ResetHard(sha); err != nil {
		return false, fmt.Errorf("rollback to %s: %w", sha, err)
	}
	return true, nil
}

// CheckAndRecover implements the exact §4.4 deterministic policy table.
func (m *Manager) CheckAndRecover(subtaskID, latestCommit, errMsg string) *Action {
	m.mu.Lock()
	attemptCount := len(m.attempts[subtaskID])
	m.mu.Unlock()

	good := m.LatestGoodCommit()

	if attemptCount > MaxSubtaskRetries && good == nil {
		return &Action{Kind: ActionEscalate, Reason: "exceeded max retries with no good commit"}
	}

	if good != nil && latestCommit != good.SHA && errs.SuggestsBrokenState(errMsg) {
		return &Action{Kind: ActionRollback, Target: good.SHA}
	}

	if errs.IsTransient(errMsg) {
		return &Action{Kind: ActionRetry}
	}

	return &Action{Kind: ActionSkip, Reason: errs.Sanitize(errMsg)}
}

// ShortSHA returns the 8-char prefix used in rollback log lines (§4.4).
func ShortSHA(sha string) string {
	if len(sha) <= 8 {
		return sha
	}
	return sha[:8]
}
