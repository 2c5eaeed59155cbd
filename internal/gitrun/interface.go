// Package gitrun is a thin, isolated-environment wrapper over the git CLI.
// It caches the resolved git executable path for the life of a process and
// invalidates that cache the moment a command fails with "executable not
// found", mirroring the spec's §4.2 discovery-cache contract.
package gitrun

import "time"

// BranchOperations covers branch creation, inspection, and removal.
type BranchOperations interface {
	CurrentBranch() (string, error)
	CreateBranch(name string) error
	CreateAndCheckoutBranch(name string) error
	CheckoutBranch(name string) error
	BranchExists(name string) (bool, error)
	DeleteBranch(name string) error
}

// DiffOperations covers status and diff inspection.
type DiffOperations interface {
	Status() (string, error)
	HasChanges() (bool, error)
	Diff(base string) (string, error)
	DiffBetween(ref1, ref2 string) (string, error)
	ChangedFiles(base string) ([]string, error)
	ChangedFilesBetween(ref1, ref2 string) ([]string, error)
	ChangedFilesRelative(branch, relativeTo string) ([]string, error)
	ConflictedFiles() ([]string, error)
}

// CommitOperations covers staging and committing.
type CommitOperations interface {
	Add(paths ...string) error
	Commit(message string) error
	Reset(ref string) error
	ResetHard(ref string) error
	CheckoutPath(path string) error
}

// MergeOperations covers merge and rebase flows.
type MergeOperations interface {
	Merge(branch string) error
	MergeNoFF(branch string) error
	MergeNoFFMessage(branch, message string) error
	MergeNoFFNoCommit(branch string) error
	MergeAbort() error
	MergeBase(branch1, branch2 string) (string, error)
	HasConflicts() (bool, error)
	Rebase(base string) error
	RebaseAbort() error
}

// WorktreeOperations covers git worktree lifecycle commands.
type WorktreeOperations interface {
	WorktreeAdd(path, branch string) error
	WorktreeAddNewBranch(path, branch, startPoint string) error
	WorktreeRemove(path string) error
	WorktreeRemoveOptionalForce(path string, force bool) error
	WorktreeList() ([]string, error)
	WorktreeListPorcelain() (string, error)
	WorktreePrune() error
}

// RemoteOperations covers fetch/pull against origin.
type RemoteOperations interface {
	Fetch(ref string) error
	PullFFOnly() error
}

// FileOperations covers reading files at refs and conflict resolution.
type FileOperations interface {
	ShowFile(ref, path string) (string, error)
	CheckIgnore(paths []string) (map[string]bool, error)
	CheckoutOurs(path string) error
	CheckoutTheirs(path string) error
	Unstage(paths ...string) error
}

// LogOperations covers commit-history queries used by worktree age accounting.
type LogOperations interface {
	LastCommitTime() (time.Time, error)
	CommitCount(base, head string) (int, error)
	Log(ref string, maxCount int) ([]string, error)
}

// Runner is the complete git operation surface. Consumers needing only a
// slice of it should depend on the focused interfaces above.
type Runner interface {
	BranchOperations
	DiffOperations
	CommitOperations
	MergeOperations
	WorktreeOperations
	RemoteOperations
	FileOperations
	LogOperations
	// Run executes an arbitrary git subcommand with the runner's isolated
	// environment and timeout, returning trimmed combined output.
	Run(args ...string) (string, error)
}
