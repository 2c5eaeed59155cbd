// Package worktree implements the per-spec git worktree lifecycle: base-
// branch detection, idempotent creation, detached-HEAD recovery,
// dependency sharing, security/config propagation, merge-back, and the
// push-and-PR pipeline with retry and age-based cleanup (spec §4.3).
package worktree

import "time"

// Strategy names how one dependency location is shared into a worktree.
type Strategy string

const (
	StrategySymlink  Strategy = "symlink"
	StrategyRecreate Strategy = "recreate"
	StrategyCopy     Strategy = "copy"
	StrategySkip     Strategy = "skip"
)

// DependencyShareConfig is one discovered dependency location and the
// strategy chosen for sharing it into new worktrees.
type DependencyShareConfig struct {
	DepType           string   `json:"dep_type"`
	Strategy          Strategy `json:"strategy"`
	SourceRelPath     string   `json:"source_rel_path"`
	RequirementsFile  string   `json:"requirements_file,omitempty"`
	PackageManager    string   `json:"package_manager,omitempty"`
}

// DefaultStrategyMap is the data-driven §4.3.4 dependency-type-to-strategy
// table. Add new ecosystems here rather than branching in code.
var DefaultStrategyMap = map[string]Strategy{
	"node_modules":   StrategySymlink,
	"venv":           StrategyRecreate,
	".venv":          StrategyRecreate,
	"vendor_php":     StrategySymlink,
	"vendor_bundle":  StrategySymlink,
	"cargo_target":   StrategySkip,
	"go_modules":     StrategySkip,
}

// Stats aggregates commit/file statistics for a worktree relative to its
// base branch.
type Stats struct {
	CommitsAheadOfBase int       `json:"commits_ahead_of_base"`
	FilesChanged       int       `json:"files_changed"`
	Additions          int       `json:"additions"`
	Deletions          int       `json:"deletions"`
	LastCommitAt       time.Time `json:"last_commit_at"`
	DaysSinceLastCommit int      `json:"days_since_last_commit"`
}

// Info is a snapshot of one on-disk worktree.
type Info struct {
	Path       string `json:"path"`
	Branch     string `json:"branch"`
	SpecName   string `json:"spec_name"`
	BaseBranch string `json:"base_branch"`
	IsActive   bool   `json:"is_active"`
	Stats      Stats  `json:"stats"`
}

// PullRequestInfo is the result of the push-and-PR pipeline.
type PullRequestInfo struct {
	URL            string `json:"url"`
	AlreadyExisted bool   `json:"already_existed"`
}

// OldAgeThresholdDays is the §4.3.8 default for "old" worktrees.
const OldAgeThresholdDays = 30

// WarnWorktreeCount and CriticalWorktreeCount are the §4.3.8 cleanup
// advisory thresholds.
const (
	WarnWorktreeCount     = 10
	CriticalWorktreeCount = 20
)
