package pausewatch

import (
	"testing"
	"time"
)

func TestCreateClearExists(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	defer w.Close()

	if w.Exists(Pause) {
		t.Fatal("expected PAUSE absent initially")
	}
	if err := Create(dir, Pause); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !w.Exists(Pause) {
		t.Fatal("expected PAUSE present after Create")
	}
	if err := Clear(dir, Pause); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if w.Exists(Pause) {
		t.Fatal("expected PAUSE absent after Clear")
	}
}

func TestClearMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	if err := Clear(dir, Pause); err != nil {
		t.Fatalf("Clear on missing file: %v", err)
	}
}

func TestWaitForResumeReturnsOnResumeFile(t *testing.T) {
	dir := t.TempDir()
	if err := Create(dir, RateLimitPause); err != nil {
		t.Fatal(err)
	}

	done := make(chan bool, 1)
	go func() {
		ok, err := WaitForResume(dir, RateLimitPause, 10*time.Millisecond, time.Second, nil)
		if err != nil {
			t.Errorf("WaitForResume: %v", err)
		}
		done <- ok
	}()

	time.Sleep(30 * time.Millisecond)
	if err := Create(dir, Resume); err != nil {
		t.Fatal(err)
	}

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("expected WaitForResume to report resumed=true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForResume did not return in time")
	}
}

func TestWaitForResumeTimesOut(t *testing.T) {
	dir := t.TempDir()
	if err := Create(dir, AuthPause); err != nil {
		t.Fatal(err)
	}

	ok, err := WaitForResume(dir, AuthPause, 10*time.Millisecond, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("WaitForResume: %v", err)
	}
	if ok {
		t.Fatal("expected timeout (ok=false)")
	}
}

func TestWaitWhilePausedUnblocksOnClear(t *testing.T) {
	dir := t.TempDir()
	if err := Create(dir, Pause); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		WaitWhilePaused(dir, nil)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("expected WaitWhilePaused to still be blocked")
	default:
	}

	if err := Clear(dir, Pause); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("WaitWhilePaused did not unblock after Clear")
	}
}
