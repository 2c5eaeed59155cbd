package worktree

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/autobuild/autobuild/internal/errs"
	"github.com/autobuild/autobuild/internal/gitrun"
)

// MergeOptions configures MergeWorktree.
type MergeOptions struct {
	DeleteAfter bool
	NoCommit    bool
}

// MergeWorktree implements §4.3.6: merge a spec's branch into the base,
// never firing hooks unnecessarily by only switching branches when needed,
// and unstaging anything that must never be merged out of a worktree.
func (m *Manager) MergeWorktree(specName string, opts MergeOptions) error {
	branch := BranchName(specName)

	current, err := m.git.CurrentBranch()
	if err != nil {
		return err
	}
	if current != m.baseBranch {
		if err := m.git.CheckoutBranch(m.baseBranch); err != nil {
			// The checkout may have still switched branches before a hook
			// failed non-zero; re-check before treating this as fatal.
			again, rerr := m.git.CurrentBranch()
			if rerr != nil || again != m.baseBranch {
				return err
			}
		}
	}

	var mergeErr error
	if opts.NoCommit {
		mergeErr = m.git.MergeNoFFNoCommit(branch)
	} else {
		mergeErr = m.git.MergeNoFFMessage(branch, "auto-claude: Merge "+branch)
	}

	if mergeErr != nil {
		msg := mergeErr.Error()
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "already up to date") || strings.Contains(lower, "up-to-date") {
			if opts.DeleteAfter {
				_ = m.git.DeleteBranch(branch)
			}
			return nil
		}
		if strings.Contains(lower, "conflict") {
			_ = m.git.MergeAbort()
			return errs.New(errs.KindMergeConflict, "merge of "+branch+" into "+m.baseBranch+" conflicted", "")
		}
		return mergeErr
	}

	if opts.NoCommit {
		if err := m.unstageNeverMerged(); err != nil {
			return err
		}
	}

	if opts.DeleteAfter {
		_ = m.git.DeleteBranch(branch)
	}
	return nil
}

// unstageNeverMerged implements the §4.3.6 step 5 rule: anything gitignored
// on base, plus anything under .auto-claude/ or auto-claude/specs/
// (regardless of gitignore state), must never land in the base branch from
// a worktree merge.
func (m *Manager) unstageNeverMerged() error {
	status, err := m.git.Status()
	if err != nil {
		return err
	}

	var staged []string
	for _, line := range strings.Split(status, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		staged = append(staged, path)
	}
	if len(staged) == 0 {
		return nil
	}

	ignored, err := m.git.CheckIgnore(staged)
	if err != nil {
		ignored = map[string]bool{}
	}

	var toUnstage []string
	for _, path := range staged {
		normalized := strings.ReplaceAll(path, `\`, "/")
		if ignored[path] ||
			strings.HasPrefix(normalized, ".auto-claude/") ||
			strings.HasPrefix(normalized, "auto-claude/specs/") {
			toUnstage = append(toUnstage, path)
		}
	}
	if len(toUnstage) == 0 {
		return nil
	}
	return m.git.Unstage(toUnstage...)
}

// ReattachDetachedHead moves the registered (or expected) branch ref to
// the current commit and checks it out, per §4.3.3's pre-push recovery.
func (m *Manager) ReattachDetachedHead(specName string) error {
	path := Path(m.projectRoot, specName)
	wtGit := gitrun.NewRunner(path, m.execs)

	current, err := wtGit.CurrentBranch()
	if err != nil {
		return err
	}
	if current != "HEAD" {
		return nil // not detached
	}

	branch := m.CurrentRegisteredBranch(path, BranchName(specName))
	if _, err := wtGit.Run("branch", "-f", branch, "HEAD"); err != nil {
		return err
	}
	return wtGit.CheckoutBranch(branch)
}

// specSummaryFallback reads a short plain-text summary from the spec's
// spec.md for use as a PR body when no AI-filled body is available.
func specSummaryFallback(specDir string) string {
	data, err := readFileTrunc(filepath.Join(specDir, "spec.md"), 2000)
	if err != nil {
		return "Automated pull request."
	}
	return data
}

// readFileTrunc reads at most maxBytes from path, returning the trimmed
// result as a string.
func readFileTrunc(path string, maxBytes int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) > maxBytes {
		data = data[:maxBytes]
	}
	return strings.TrimSpace(string(data)), nil
}
