package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/autobuild/autobuild/internal/coder"
)

func TestRetryingStore_SucceedsWithoutRetry(t *testing.T) {
	s := newTestStore(t)
	rs := WithRetry(s, 3)

	err := rs.Save(coder.Insight{SubtaskID: "t1", Summary: "ok", Success: true})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestRetryingStore_DefaultsMaxAttempts(t *testing.T) {
	s := newTestStore(t)
	rs := WithRetry(s, 0)
	if rs.maxAttempts <= 0 {
		t.Errorf("maxAttempts = %d, want a positive default", rs.maxAttempts)
	}
}

func TestIsBusy(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("boom"), false},
		{errors.New("database is locked"), true},
		{errors.New("SQLITE_BUSY: database table is locked"), true},
	}
	for _, tc := range cases {
		if got := isBusy(tc.err); got != tc.want {
			t.Errorf("isBusy(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestJitteredSleep_NeverExceedsNominalDelay(t *testing.T) {
	d := 20 * time.Millisecond
	start := time.Now()
	jitteredSleep(d)
	elapsed := time.Since(start)
	if elapsed > d {
		t.Errorf("jitteredSleep slept %v, want <= nominal delay %v", elapsed, d)
	}
}
