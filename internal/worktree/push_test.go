package worktree

import (
	"errors"
	"testing"
)

func TestPushRejectedNonFastForward(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("! [rejected] main -> main (non-fast-forward)"), true},
		{errors.New("hint: Updates were rejected because the remote contains work that you do\nhint: not have locally. This is usually caused by another repository pushing\nhint: to the same ref. You may want to first integrate the remote changes\nhint: (e.g., 'git pull ...') before pushing again.\nhint: See the 'Note about fast-forwards' in 'git push --help' for details.\n! [rejected] main -> main (fetch first)"), true},
		{errors.New("fatal: could not read Username for 'https://github.com': terminal prompts disabled"), false},
	}

	for _, c := range cases {
		got := pushRejectedNonFastForward(c.err)
		if got != c.want {
			t.Errorf("pushRejectedNonFastForward(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestSpecSummaryFallbackMissingFile(t *testing.T) {
	got := specSummaryFallback(t.TempDir())
	if got != "Automated pull request." {
		t.Fatalf("expected default fallback text, got %q", got)
	}
}
