package worktree

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/autobuild/autobuild/internal/errs"
	"github.com/autobuild/autobuild/internal/forge"
	"github.com/autobuild/autobuild/internal/gitrun"
	"github.com/autobuild/autobuild/internal/retry"
)

// PushOptions configures PushAndOpenPullRequest.
type PushOptions struct {
	SpecName string
	Title    string
	// Body, if empty, falls back to a truncated read of the spec's
	// spec.md (§4.3.7's AI-body-fallback-to-spec-summary chain, minus the
	// AI step which lives outside this package's narrow interface contract).
	Body string
	Draft bool
}

// PushAndOpenPullRequest implements §4.3.7: push the spec's worktree
// branch with retry, then create (or find the existing) forge pull/merge
// request.
func (m *Manager) PushAndOpenPullRequest(ctx context.Context, opts PushOptions) (*PullRequestInfo, error) {
	branch := BranchName(opts.SpecName)
	path := Path(m.projectRoot, opts.SpecName)
	wtGit := gitrun.NewRunner(path, m.execs).WithTimeout(gitrun.PushTimeout)

	cfg := retry.Config{MaxAttempts: retry.DefaultMaxAttempts, Sleep: time.Sleep}
	isRetryable := func(err error) bool {
		return errs.IsRetryableNetworkError(err) || errs.IsRetryableHTTPError(err) || pushRejectedNonFastForward(err)
	}

	_, err := retry.WithBackoff(cfg, isRetryable, func(attempt int) (struct{}, error) {
		if attempt > 1 {
			_ = wtGit.Fetch(branch)
		}
		_, pushErr := wtGit.Run("push", "--set-upstream", "origin", branch)
		return struct{}{}, pushErr
	})
	if err != nil {
		return nil, fmt.Errorf("push %s: %w", branch, err)
	}

	remoteURL, _ := wtGit.Run("remote", "get-url", "origin")
	provider := forge.DetectProvider(remoteURL)

	body := opts.Body
	if body == "" {
		body = specSummaryFallback(filepath.Join(m.projectRoot, "auto-claude", "specs", opts.SpecName))
	}
	title := opts.Title
	if title == "" {
		title = "auto-claude: " + opts.SpecName
	}

	wtForge := forge.NewClient(path, m.execs)

	var result *forge.PullRequestResult
	switch provider {
	case forge.ProviderGitLab:
		result, err = wtForge.CreateMergeRequest(ctx, m.baseBranch, branch, title, body)
	default:
		result, err = wtForge.CreatePullRequest(ctx, m.baseBranch, branch, title, body)
	}
	if err != nil {
		return nil, fmt.Errorf("open pull request for %s: %w", branch, err)
	}

	return &PullRequestInfo{URL: result.URL, AlreadyExisted: result.AlreadyExisted}, nil
}

// pushRejectedNonFastForward reports whether an error looks like git's
// standard non-fast-forward rejection, distinct from network failures.
func pushRejectedNonFastForward(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "non-fast-forward") || strings.Contains(msg, "fetch first")
}
