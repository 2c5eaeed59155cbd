package worktree

import (
	"fmt"
	"os"
	"path/filepath"
)

// CleanupReport summarizes one cleanup pass.
type CleanupReport struct {
	Removed        []string `json:"removed"`
	Failed         []string `json:"failed"`
	Skipped        []string `json:"skipped"`
	TotalWorktrees int      `json:"total_worktrees"`
	Warning        string   `json:"warning,omitempty"`
}

// ListAllWorktrees returns the spec name for every worktree registered
// under the project's tasks root, regardless of age.
func (m *Manager) ListAllWorktrees() ([]string, error) {
	root := filepath.Join(m.projectRoot, ".auto-claude", "worktrees", "tasks")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var specs []string
	for _, e := range entries {
		if e.IsDir() {
			specs = append(specs, e.Name())
		}
	}
	return specs, nil
}

// CleanupOldWorktrees implements §4.3.8: remove worktrees whose last
// commit is older than olderThanDays (defaulting to OldAgeThresholdDays
// when zero), skipping any that still have unmerged, unpushed changes
// unless force is set. In dryRun mode, nothing is actually removed; the
// report lists what would be.
func (m *Manager) CleanupOldWorktrees(olderThanDays int, force, dryRun bool) (*CleanupReport, error) {
	if olderThanDays <= 0 {
		olderThanDays = OldAgeThresholdDays
	}

	specs, err := m.ListAllWorktrees()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	report := &CleanupReport{TotalWorktrees: len(specs)}

	for _, spec := range specs {
		path := Path(m.projectRoot, spec)
		branch := BranchName(spec)

		info, err := m.statsFor(path, branch, spec)
		if err != nil {
			report.Failed = append(report.Failed, spec)
			continue
		}

		if info.Stats.DaysSinceLastCommit < olderThanDays {
			continue
		}

		if !force && info.Stats.CommitsAheadOfBase > 0 {
			report.Skipped = append(report.Skipped, spec)
			continue
		}

		if dryRun {
			report.Removed = append(report.Removed, spec)
			continue
		}

		if err := m.removeWorktree(path, branch); err != nil {
			report.Failed = append(report.Failed, spec)
			continue
		}
		report.Removed = append(report.Removed, spec)
	}

	switch {
	case len(specs) >= CriticalWorktreeCount:
		report.Warning = fmt.Sprintf("critical: %d worktrees present (threshold %d) — disk and registration overhead is significant", len(specs), CriticalWorktreeCount)
	case len(specs) >= WarnWorktreeCount:
		report.Warning = fmt.Sprintf("warning: %d worktrees present (threshold %d)", len(specs), WarnWorktreeCount)
	}

	return report, nil
}

func (m *Manager) removeWorktree(path, branch string) error {
	if err := m.git.WorktreeRemoveOptionalForce(path, true); err != nil {
		// The registration may already be gone (manual rm -rf); prune and
		// remove any leftover directory before giving up.
		_ = m.git.WorktreePrune()
		if dirExists(path) {
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return rmErr
			}
		}
	}
	_ = m.git.WorktreePrune()
	_ = m.git.DeleteBranch(branch)
	return nil
}

// pruneStaleRegistrations is a standalone maintenance step: it asks git to
// forget worktree entries whose directory has been removed out-of-band.
func (m *Manager) pruneStaleRegistrations() error {
	return m.git.WorktreePrune()
}
