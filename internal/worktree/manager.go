package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/autobuild/autobuild/internal/errs"
	"github.com/autobuild/autobuild/internal/execcache"
	"github.com/autobuild/autobuild/internal/forge"
	"github.com/autobuild/autobuild/internal/gitrun"
)

// Manager owns worktree lifecycle for one project repository. A single
// Manager instance resolves its base branch once; creating a worktree for
// the same spec name concurrently is NOT safe (§5) — callers must
// serialize per spec name, typically via the mutex below held for the
// duration of EnsureWorktree.
type Manager struct {
	projectRoot string
	baseBranch  string
	execs       *execcache.Cache
	git         *gitrun.ExecRunner
	forge       *forge.Client

	mu sync.Mutex
}

// NewManager resolves the base branch (per §4.3.1) and returns a Manager
// rooted at projectRoot.
func NewManager(projectRoot string) (*Manager, error) {
	execs := execcache.New()
	git := gitrun.NewRunner(projectRoot, execs)

	m := &Manager{
		projectRoot: projectRoot,
		execs:       execs,
		git:         git,
		forge:       forge.NewClient(projectRoot, execs),
	}
	base, err := detectBaseBranch(git)
	if err != nil {
		return nil, err
	}
	m.baseBranch = base
	return m, nil
}

// BaseBranch returns the resolved integration branch.
func (m *Manager) BaseBranch() string { return m.baseBranch }

func detectBaseBranch(git *gitrun.ExecRunner) (string, error) {
	if envBranch := os.Getenv("DEFAULT_BRANCH"); envBranch != "" {
		if ok, _ := git.BranchExists(envBranch); ok {
			return envBranch, nil
		}
	}
	for _, candidate := range []string{"main", "master"} {
		if ok, _ := git.BranchExists(candidate); ok {
			return candidate, nil
		}
	}
	current, err := git.CurrentBranch()
	if err != nil {
		return "", fmt.Errorf("detect base branch: %w", err)
	}
	return current, nil
}

// BranchName returns the spec-scoped branch name, auto-claude/<spec-name>.
func BranchName(specName string) string {
	return "auto-claude/" + specName
}

// Path returns the spec-scoped worktree directory under the project.
func Path(projectRoot, specName string) string {
	return filepath.Join(projectRoot, ".auto-claude", "worktrees", "tasks", specName)
}

// EnsureWorktree implements the §4.3.2 idempotent create-or-get algorithm.
func (m *Manager) EnsureWorktree(ctx context.Context, specName string, useLocalBranch bool) (*Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	branch := BranchName(specName)
	path := Path(m.projectRoot, specName)

	// Step 1: prune orphaned registrations.
	_ = m.git.WorktreePrune()

	// Step 2: the literal branch name "auto-claude" would collide with the
	// auto-claude/ ref namespace (git stores refs as files on disk).
	if exists, _ := m.git.BranchExists("auto-claude"); exists {
		return nil, errs.New(errs.KindBranchNamespaceConflict,
			"a branch literally named 'auto-claude' exists and blocks the auto-claude/ namespace; rename or delete it", "")
	}

	entries, _ := parsePorcelain(mustPorcelain(m.git))
	tracked, registered := findEntry(entries, path)

	if dirExists(path) {
		if tracked {
			// Step 4: registered but HEAD unreadable -> force-remove and fall through.
			wtGit := gitrun.NewRunner(path, m.execs)
			if _, err := wtGit.CurrentBranch(); err != nil {
				_ = m.git.WorktreeRemoveOptionalForce(path, true)
			} else {
				// Step 3: already exists and tracked -> return existing info.
				return m.statsFor(path, registered.Branch, specName)
			}
		} else {
			// Step 5: stale directory, git doesn't track it.
			if err := os.RemoveAll(path); err != nil {
				return nil, fmt.Errorf("remove stale worktree directory: %w", err)
			}
		}
	}

	// Step 6: fetch base branch; continue with local on failure.
	_ = m.git.Fetch(m.baseBranch)

	branchExists, _ := m.git.BranchExists(branch)
	if branchExists {
		// Step 7: attach to the existing branch.
		if err := m.git.WorktreeAdd(path, branch); err != nil {
			return nil, fmt.Errorf("attach worktree to existing branch %s: %w", branch, err)
		}
	} else {
		// Step 8: create a new branch, preferring origin/<base> when available.
		startPoint := m.baseBranch
		if !useLocalBranch {
			if ok, _ := m.git.BranchExists("origin/" + m.baseBranch); ok {
				startPoint = "origin/" + m.baseBranch
			} else if _, err := m.git.Run("rev-parse", "--verify", "origin/"+m.baseBranch); err == nil {
				startPoint = "origin/" + m.baseBranch
			}
		}
		if err := m.git.WorktreeAddNewBranch(path, branch, startPoint); err != nil {
			return nil, fmt.Errorf("create worktree with new branch %s: %w", branch, err)
		}
	}

	if err := m.propagateSecurityAndConfig(path); err != nil {
		return nil, fmt.Errorf("propagate security/config: %w", err)
	}
	if err := m.shareDependencies(ctx, path); err != nil {
		return nil, fmt.Errorf("share dependencies: %w", err)
	}

	return m.statsFor(path, branch, specName)
}

func mustPorcelain(git *gitrun.ExecRunner) string {
	out, err := git.WorktreeListPorcelain()
	if err != nil {
		return ""
	}
	return out
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

type porcelainEntry struct {
	Path     string
	Branch   string
	Detached bool
}

func parsePorcelain(out string) ([]porcelainEntry, error) {
	var entries []porcelainEntry
	var cur porcelainEntry
	flush := func() {
		if cur.Path != "" {
			entries = append(entries, cur)
		}
		cur = porcelainEntry{}
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "detached":
			cur.Detached = true
		}
	}
	flush()
	return entries, nil
}

func findEntry(entries []porcelainEntry, path string) (bool, porcelainEntry) {
	for _, e := range entries {
		if samePath(e.Path, path) {
			return true, e
		}
	}
	return false, porcelainEntry{}
}

func samePath(a, b string) bool {
	ca, err1 := filepath.Abs(a)
	cb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return ca == cb
}

// CurrentRegisteredBranch implements the §4.3.3 detached-HEAD recovery
// walk: parse `git worktree list --porcelain` to find the branch this
// worktree is registered against, falling back to the expected name.
func (m *Manager) CurrentRegisteredBranch(path, expected string) string {
	entries, _ := parsePorcelain(mustPorcelain(m.git))
	if ok, e := findEntry(entries, path); ok && e.Branch != "" {
		return e.Branch
	}
	return expected
}
