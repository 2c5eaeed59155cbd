package gitrun

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/autobuild/autobuild/internal/execcache"
)

// DefaultTimeout is the §5 default git operation timeout.
const DefaultTimeout = 60 * time.Second

// PushTimeout is the longer §5 timeout used for push operations.
const PushTimeout = 120 * time.Second

// ExecRunner implements Runner by shelling out to the git CLI with an
// isolated environment: no terminal prompts, no pager, C locale, so output
// parsing is stable across host configurations.
type ExecRunner struct {
	repoPath string
	execs    *execcache.Cache
	timeout  time.Duration
}

// NewRunner creates a git runner rooted at repoPath, using exec to cache
// the discovered git executable. Pass a shared cache when multiple runners
// (e.g. one per worktree) should invalidate together.
func NewRunner(repoPath string, execs *execcache.Cache) *ExecRunner {
	if execs == nil {
		execs = execcache.New()
	}
	return &ExecRunner{repoPath: repoPath, execs: execs, timeout: DefaultTimeout}
}

// WithTimeout returns a copy of the runner using the given timeout for
// subsequent calls (e.g. PushTimeout for a push operation).
func (r *ExecRunner) WithTimeout(d time.Duration) *ExecRunner {
	clone := *r
	clone.timeout = d
	return &clone
}

func isolatedEnv() []string {
	return []string{
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat",
		"LC_ALL=C",
		"LANG=C",
		"PATH=" + lookupPathEnv(),
		"HOME=" + lookupHomeEnv(),
	}
}

func (r *ExecRunner) run(args ...string) (string, error) {
	gitPath, err := r.execs.Resolve("git")
	if err != nil {
		return "", fmt.Errorf("git %s: executable not found: %w", strings.Join(args, " "), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, gitPath, args...)
	cmd.Dir = r.repoPath
	cmd.Env = isolatedEnv()

	out, err := cmd.CombinedOutput()
	if err != nil {
		if execcache.IsNotFound(err) {
			r.execs.Invalidate("git")
		}
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *ExecRunner) runSilent(args ...string) error {
	_, err := r.run(args...)
	return err
}

// Run executes an arbitrary git subcommand.
func (r *ExecRunner) Run(args ...string) (string, error) {
	return r.run(args...)
}

func (r *ExecRunner) CurrentBranch() (string, error) {
	return r.run("rev-parse", "--abbrev-ref", "HEAD")
}

func (r *ExecRunner) CreateBranch(name string) error {
	return r.runSilent("branch", name)
}

func (r *ExecRunner) CreateAndCheckoutBranch(name string) error {
	return r.runSilent("checkout", "-b", name)
}

func (r *ExecRunner) CheckoutBranch(name string) error {
	return r.runSilent("checkout", name)
}

func (r *ExecRunner) BranchExists(name string) (bool, error) {
	_, err := r.run("show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		if strings.Contains(err.Error(), "exit status 1") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *ExecRunner) DeleteBranch(name string) error {
	return r.runSilent("branch", "-D", name)
}

func (r *ExecRunner) Status() (string, error) {
	return r.run("status", "--porcelain")
}

func (r *ExecRunner) HasChanges() (bool, error) {
	status, err := r.Status()
	if err != nil {
		return false, err
	}
	return len(status) > 0, nil
}

func (r *ExecRunner) Diff(base string) (string, error) {
	return r.run("diff", base)
}

func (r *ExecRunner) DiffBetween(ref1, ref2 string) (string, error) {
	return r.run("diff", ref1, ref2)
}

func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func (r *ExecRunner) ChangedFiles(base string) ([]string, error) {
	out, err := r.run("diff", "--name-only", base)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (r *ExecRunner) ChangedFilesBetween(ref1, ref2 string) ([]string, error) {
	out, err := r.run("diff", "--name-only", ref1, ref2)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (r *ExecRunner) ChangedFilesRelative(branch, relativeTo string) ([]string, error) {
	out, err := r.run("diff", "--name-only", relativeTo+"..."+branch)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (r *ExecRunner) ConflictedFiles() ([]string, error) {
	out, err := r.run("diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, nil
	}
	return splitLines(out), nil
}

func (r *ExecRunner) Add(paths ...string) error {
	args := append([]string{"add"}, paths...)
	return r.runSilent(args...)
}

func (r *ExecRunner) Commit(message string) error {
	return r.runSilent("commit", "-m", message)
}

func (r *ExecRunner) Reset(ref string) error {
	return r.runSilent("reset", ref)
}

func (r *ExecRunner) ResetHard(ref string) error {
	return r.runSilent("reset", "--hard", ref)
}

func (r *ExecRunner) CheckoutPath(path string) error {
	return r.runSilent("checkout", path)
}

func (r *ExecRunner) Merge(branch string) error {
	return r.runSilent("merge", branch)
}

func (r *ExecRunner) MergeNoFF(branch string) error {
	return r.runSilent("merge", "--no-ff", branch)
}

func (r *ExecRunner) MergeNoFFMessage(branch, message string) error {
	return r.runSilent("merge", "--no-ff", "-m", message, branch)
}

func (r *ExecRunner) MergeNoFFNoCommit(branch string) error {
	return r.runSilent("merge", "--no-ff", "--no-commit", branch)
}

func (r *ExecRunner) MergeAbort() error {
	return r.runSilent("merge", "--abort")
}

func (r *ExecRunner) MergeBase(branch1, branch2 string) (string, error) {
	return r.run("merge-base", branch1, branch2)
}

func (r *ExecRunner) HasConflicts() (bool, error) {
	status, err := r.Status()
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(status, "\n") {
		if len(line) >= 2 {
			switch line[:2] {
			case "UU", "AA", "DD", "AU", "UA", "DU", "UD":
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *ExecRunner) Rebase(base string) error {
	return r.runSilent("rebase", base)
}

func (r *ExecRunner) RebaseAbort() error {
	return r.runSilent("rebase", "--abort")
}

func (r *ExecRunner) WorktreeAdd(path, branch string) error {
	return r.runSilent("worktree", "add", path, branch)
}

func (r *ExecRunner) WorktreeAddNewBranch(path, branch, startPoint string) error {
	args := []string{"worktree", "add", path, "-b", branch}
	if startPoint != "" {
		args = append(args, startPoint)
	}
	return r.runSilent(args...)
}

func (r *ExecRunner) WorktreeRemove(path string) error {
	return r.runSilent("worktree", "remove", "--force", path)
}

func (r *ExecRunner) WorktreeRemoveOptionalForce(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	return r.runSilent(args...)
}

func (r *ExecRunner) WorktreeList() ([]string, error) {
	out, err := r.run("worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "worktree ") {
			paths = append(paths, strings.TrimPrefix(line, "worktree "))
		}
	}
	return paths, nil
}

func (r *ExecRunner) WorktreeListPorcelain() (string, error) {
	return r.run("worktree", "list", "--porcelain")
}

func (r *ExecRunner) WorktreePrune() error {
	return r.runSilent("worktree", "prune")
}

func (r *ExecRunner) Fetch(ref string) error {
	args := []string{"fetch", "origin"}
	if ref != "" {
		args = append(args, ref)
	}
	return r.WithTimeout(PushTimeout).runSilent(args...)
}

func (r *ExecRunner) PullFFOnly() error {
	_ = r.runSilent("pull", "--ff-only")
	return nil
}

func (r *ExecRunner) ShowFile(ref, path string) (string, error) {
	return r.run("show", ref+":"+path)
}

func (r *ExecRunner) CheckIgnore(paths []string) (map[string]bool, error) {
	result := make(map[string]bool, len(paths))
	if len(paths) == 0 {
		return result, nil
	}
	gitPath, err := r.execs.Resolve("git")
	if err != nil {
		return nil, fmt.Errorf("git check-ignore: executable not found: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, gitPath, "check-ignore", "--stdin")
	cmd.Dir = r.repoPath
	cmd.Env = isolatedEnv()
	cmd.Stdin = strings.NewReader(strings.Join(paths, "\n") + "\n")
	out, _ := cmd.Output() // exit 1 just means "none ignored", not an error
	for _, line := range splitLines(strings.TrimSpace(string(out))) {
		if line != "" {
			result[line] = true
		}
	}
	return result, nil
}

func (r *ExecRunner) CheckoutOurs(path string) error {
	return r.runSilent("checkout", "--ours", path)
}

func (r *ExecRunner) CheckoutTheirs(path string) error {
	return r.runSilent("checkout", "--theirs", path)
}

func (r *ExecRunner) Unstage(paths ...string) error {
	args := append([]string{"reset", "HEAD", "--"}, paths...)
	return r.runSilent(args...)
}

func (r *ExecRunner) LastCommitTime() (time.Time, error) {
	out, err := r.run("log", "-1", "--format=%ct")
	if err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse commit time: %w", err)
	}
	return time.Unix(sec, 0), nil
}

func (r *ExecRunner) CommitCount(base, head string) (int, error) {
	out, err := r.run("rev-list", "--count", base+".."+head)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parse commit count: %w", err)
	}
	return n, nil
}

// HeadSHA returns the full SHA of the current HEAD commit.
func (r *ExecRunner) HeadSHA() (string, error) {
	return r.run("rev-parse", "HEAD")
}

func (r *ExecRunner) Log(ref string, maxCount int) ([]string, error) {
	out, err := r.run("log", ref, fmt.Sprintf("-n%d", maxCount), "--format=%H")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

var _ Runner = (*ExecRunner)(nil)
