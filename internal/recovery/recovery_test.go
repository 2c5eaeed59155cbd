package recovery

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/autobuild/autobuild/internal/gitrun"
	"github.com/autobuild/autobuild/internal/plan"
)

func initTestRepo(t *testing.T) string {
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
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "a.txt")
	run("commit", "-q", "-m", "v1")
	return dir
}

func TestRecordAttemptTruncatesApproachAndError(t *testing.T) {
	specDir := t.TempDir()
	m, err := NewManager(specDir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	longApproach := make([]byte, 150)
	for i := range longApproach {
		longApproach[i] = 'a'
	}
	longErr := make([]byte, 800)
	for i := range longErr {
		longErr[i] = 'e'
	}

	if err := m.RecordAttempt("t1", "sess-1", false, string(longApproach), string(longErr)); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	if got := m.AttemptCount("t1"); got != 1 {
		t.Fatalf("AttemptCount = %d, want 1", got)
	}

	m2, err := NewManager(specDir)
	if err != nil {
		t.Fatalf("reload NewManager: %v", err)
	}
	attempts := m2.attempts["t1"]
	if len(attempts) != 1 {
		t.Fatalf("expected 1 persisted attempt, got %d", len(attempts))
	}
	if len(attempts[0].Approach) != maxApproachLen {
		t.Fatalf("approach len = %d, want %d", len(attempts[0].Approach), maxApproachLen)
	}
	if len(attempts[0].Error) != maxErrorLen {
		t.Fatalf("error len = %d, want %d", len(attempts[0].Error), maxErrorLen)
	}
}

func TestGoodCommitLedgerPrependsNewestFirst(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.RecordGoodCommit("sha1", "t1"); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordGoodCommit("sha2", "t1"); err != nil {
		t.Fatal(err)
	}
	latest := m.LatestGoodCommit()
	if latest == nil || latest.SHA != "sha2" {
		t.Fatalf("expected newest good commit sha2 first, got %+v", latest)
	}
}

func TestCheckAndRecoverEscalatesPastMaxRetriesWithNoGoodCommit(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	for i := 0; i < MaxSubtaskRetries+1; i++ {
		if err := m.RecordAttempt("t1", "sess", false, "approach", "some error"); err != nil {
			t.Fatal(err)
		}
	}

	action := m.CheckAndRecover("t1", "deadbeef", "some error")
	if action.Kind != ActionEscalate {
		t.Fatalf("expected escalate, got %+v", action)
	}
}

func TestCheckAndRecoverRollsBackOnBrokenStateWithGoodCommit(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.RecordGoodCommit("goodsha", "t1"); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordAttempt("t1", "sess", false, "approach", "compile error: undefined symbol"); err != nil {
		t.Fatal(err)
	}

	action := m.CheckAndRecover("t1", "currentsha", "compile error: undefined symbol")
	if action.Kind != ActionRollback || action.Target != "goodsha" {
		t.Fatalf("expected rollback to goodsha, got %+v", action)
	}
}

func TestCheckAndRecoverRetriesOnTransientError(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.RecordAttempt("t1", "sess", false, "approach", "connection reset by peer"); err != nil {
		t.Fatal(err)
	}

	action := m.CheckAndRecover("t1", "sha", "connection reset by peer")
	if action.Kind != ActionRetry {
		t.Fatalf("expected retry, got %+v", action)
	}
}

func TestCheckAndRecoverSkipsOtherwise(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.RecordAttempt("t1", "sess", false, "approach", "unexpected thing happened"); err != nil {
		t.Fatal(err)
	}

	action := m.CheckAndRecover("t1", "sha", "unexpected thing happened")
	if action.Kind != ActionSkip {
		t.Fatalf("expected skip, got %+v", action)
	}
}

func TestExecuteRollbackResetsRepo(t *testing.T) {
	dir := initTestRepo(t)
	git := gitrun.NewRunner(dir, nil)

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command("git", "commit", "-q", "-am", "v2")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("commit v2: %v: %s", err, out)
	}

	logOut, err := git.Log("HEAD", 2)
	if err != nil || len(logOut) < 2 {
		t.Fatalf("Log: %v %v", logOut, err)
	}
	v1SHA := logOut[1]

	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	action := &Action{Kind: ActionRollback, Target: v1SHA}
	if err := Execute(m, git, &plan.ImplementationPlan{}, "t1", action); err != nil {
		t.Fatalf("Execute rollback: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v1" {
		t.Fatalf("expected a.txt reset to v1, got %q", data)
	}
}

func TestExecuteRetryResetsSubtask(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	st := &plan.Subtask{ID: "t1", Status: plan.StatusInProgress}
	p := &plan.ImplementationPlan{
		Phases: []*plan.Phase{{Number: 1, Subtasks: []*plan.Subtask{st}}},
	}

	if err := Execute(m, nil, p, "t1", &Action{Kind: ActionRetry}); err != nil {
		t.Fatalf("Execute retry: %v", err)
	}
	if st.Status != plan.StatusPending {
		t.Fatalf("expected subtask reset to pending, got %s", st.Status)
	}
}

func TestExecuteSkipMarksStuck(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := Execute(m, nil, &plan.ImplementationPlan{}, "t1", &Action{Kind: ActionSkip, Reason: "gave up"}); err != nil {
		t.Fatalf("Execute skip: %v", err)
	}
	if !m.IsStuck("t1") {
		t.Fatal("expected t1 marked stuck")
	}
}
