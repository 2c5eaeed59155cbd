package worktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autobuild/autobuild/internal/gitrun"
)

func newWtGit(t *testing.T, path string) *gitrun.ExecRunner {
	t.Helper()
	return gitrun.NewRunner(path, nil)
}

func initProjectRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init", "-q", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("root"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "README.md")
	run("commit", "-q", "-m", "init")
	return dir
}

func newTestManager(t *testing.T, projectRoot string) *Manager {
	t.Helper()
	m, err := NewManager(projectRoot)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestMergeWorktreeAlreadyUpToDate(t *testing.T) {
	root := initProjectRepo(t)
	m := newTestManager(t, root)

	ctx := context.Background()
	if _, err := m.EnsureWorktree(ctx, "spec-a", false); err != nil {
		t.Fatalf("EnsureWorktree: %v", err)
	}

	if err := m.MergeWorktree("spec-a", MergeOptions{}); err != nil {
		t.Fatalf("MergeWorktree (no changes): %v", err)
	}
}

func TestMergeWorktreeCommitsChanges(t *testing.T) {
	root := initProjectRepo(t)
	m := newTestManager(t, root)

	ctx := context.Background()
	info, err := m.EnsureWorktree(ctx, "spec-b", false)
	if err != nil {
		t.Fatalf("EnsureWorktree: %v", err)
	}

	if err := os.WriteFile(filepath.Join(info.Path, "new.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = info.Path
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("add", "new.txt")
	run("commit", "-q", "-m", "add new file")

	if err := m.MergeWorktree("spec-b", MergeOptions{DeleteAfter: true}); err != nil {
		t.Fatalf("MergeWorktree: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "new.txt")); err != nil {
		t.Fatalf("expected new.txt to exist on base after merge: %v", err)
	}

	exists, err := m.git.BranchExists(BranchName("spec-b"))
	if err != nil {
		t.Fatalf("BranchExists: %v", err)
	}
	if exists {
		t.Fatal("expected branch to be deleted after DeleteAfter merge")
	}
}

func TestUnstageNeverMergedStripsAutoClaudeDir(t *testing.T) {
	root := initProjectRepo(t)
	m := newTestManager(t, root)

	ctx := context.Background()
	info, err := m.EnsureWorktree(ctx, "spec-c", false)
	if err != nil {
		t.Fatalf("EnsureWorktree: %v", err)
	}

	specDir := filepath.Join(info.Path, ".auto-claude", "notes")
	if err := os.MkdirAll(specDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(specDir, "scratch.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(info.Path, "feature.txt"), []byte("feature"), 0o644); err != nil {
		t.Fatal(err)
	}

	addForced := exec.Command("git", "add", "-f", ".auto-claude/notes/scratch.json", "feature.txt")
	addForced.Dir = info.Path
	if out, err := addForced.CombinedOutput(); err != nil {
		t.Fatalf("git add -f: %v: %s", err, out)
	}

	wtGit := newWtGit(t, info.Path)
	if err := wtGit.Commit("wip"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := m.MergeWorktree("spec-c", MergeOptions{NoCommit: true}); err != nil {
		t.Fatalf("MergeWorktree no-commit: %v", err)
	}

	status, err := m.git.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, line := range strings.Split(status, "\n") {
		if len(line) < 4 {
			continue
		}
		staged := line[0] != ' ' && line[0] != '?'
		if staged && strings.Contains(line, ".auto-claude") {
			t.Fatalf("expected .auto-claude/ to be unstaged, found staged line: %q\nfull status:\n%s", line, status)
		}
	}
	if !strings.Contains(status, "feature.txt") {
		t.Fatalf("expected feature.txt to remain staged, got status:\n%s", status)
	}
}
