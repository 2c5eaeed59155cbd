// Package forge wraps the gh and glab CLIs with the same isolated-
// environment, cached-executable-discovery contract as internal/gitrun
// (§4.2 mirrors for gh/glab), and implements the §4.3.7 push-and-PR/MR
// pipeline's forge-side half: PR/MR creation, lookup, and URL extraction.
package forge

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/autobuild/autobuild/internal/execcache"
)

// Provider identifies which hosted forge a remote belongs to.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

// MutationTimeout and QueryTimeout are the §5 forge-CLI timeouts.
const (
	MutationTimeout = 60 * time.Second
	QueryTimeout    = 30 * time.Second
)

var (
	githubPRURLRe = regexp.MustCompile(`https://\S+/pull/\d+`)
	gitlabMRURLRe = regexp.MustCompile(`https://\S+(?:/merge_requests/|/-/merge_requests/)\d+`)
)

// DetectProvider inspects an origin remote URL and reports which forge it
// belongs to.
func DetectProvider(remoteURL string) Provider {
	if strings.Contains(remoteURL, "gitlab.") {
		return ProviderGitLab
	}
	return ProviderGitHub
}

// Client runs gh or glab as subprocesses against a repo directory.
type Client struct {
	repoPath string
	execs    *execcache.Cache
}

// NewClient returns a forge client rooted at repoPath.
func NewClient(repoPath string, execs *execcache.Cache) *Client {
	if execs == nil {
		execs = execcache.New()
	}
	return &Client{repoPath: repoPath, execs: execs}
}

func (c *Client) binaryFor(p Provider) string {
	if p == ProviderGitLab {
		return "glab"
	}
	return "gh"
}

func (c *Client) run(ctx context.Context, p Provider, timeout time.Duration, args ...string) (string, error) {
	name := c.binaryFor(p)
	path, err := c.execs.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("%s %s: executable not found: %w", name, strings.Join(args, " "), err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Dir = c.repoPath

	out, err := cmd.CombinedOutput()
	if err != nil {
		if execcache.IsNotFound(err) {
			c.execs.Invalidate(name)
		}
		return string(out), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// PullRequestResult is the outcome of CreatePullRequest / CreateMergeRequest.
type PullRequestResult struct {
	URL            string
	AlreadyExisted bool
}

// CreatePullRequest opens a GitHub PR for head against base, falling back
// to fetching the existing PR's URL when gh reports one already exists.
func (c *Client) CreatePullRequest(ctx context.Context, base, head, title, body string) (*PullRequestResult, error) {
	out, err := c.run(ctx, ProviderGitHub, MutationTimeout,
		"pr", "create", "--base", base, "--head", head, "--title", title, "--body", body)
	if err != nil {
		if strings.Contains(strings.ToLower(out), "already exists") {
			return c.existingPullRequest(ctx, head)
		}
		return nil, err
	}
	if url := githubPRURLRe.FindString(out); url != "" {
		return &PullRequestResult{URL: url}, nil
	}
	return c.existingPullRequest(ctx, head)
}

func (c *Client) existingPullRequest(ctx context.Context, head string) (*PullRequestResult, error) {
	out, err := c.run(ctx, ProviderGitHub, QueryTimeout, "pr", "view", head, "--json", "url")
	if err != nil {
		return nil, fmt.Errorf("look up existing PR for %s: %w", head, err)
	}
	url := extractJSONURL(out)
	if url == "" {
		url = githubPRURLRe.FindString(out)
	}
	return &PullRequestResult{URL: url, AlreadyExisted: true}, nil
}

// CreateMergeRequest opens a GitLab MR, mirroring CreatePullRequest's
// already-exists fallback.
func (c *Client) CreateMergeRequest(ctx context.Context, base, head, title, body string) (*PullRequestResult, error) {
	out, err := c.run(ctx, ProviderGitLab, MutationTimeout,
		"mr", "create", "--target-branch", base, "--source-branch", head, "--title", title, "--description", body)
	if err != nil {
		if strings.Contains(strings.ToLower(out), "already exists") {
			return c.existingMergeRequest(ctx, head)
		}
		return nil, err
	}
	if url := gitlabMRURLRe.FindString(out); url != "" {
		return &PullRequestResult{URL: url}, nil
	}
	return c.existingMergeRequest(ctx, head)
}

func (c *Client) existingMergeRequest(ctx context.Context, head string) (*PullRequestResult, error) {
	out, err := c.run(ctx, ProviderGitLab, QueryTimeout, "mr", "view", head, "--output", "json")
	if err != nil {
		return nil, fmt.Errorf("look up existing MR for %s: %w", head, err)
	}
	url := extractJSONURL(out)
	if url == "" {
		url = gitlabMRURLRe.FindString(out)
	}
	return &PullRequestResult{URL: url, AlreadyExisted: true}, nil
}

var jsonURLFieldRe = regexp.MustCompile(`"url"\s*:\s*"([^"]+)"`)

func extractJSONURL(jsonOut string) string {
	m := jsonURLFieldRe.FindStringSubmatch(jsonOut)
	if len(m) == 2 {
		return m[1]
	}
	return ""
}
