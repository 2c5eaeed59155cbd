package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autobuild/autobuild/internal/agentclient"
	"github.com/autobuild/autobuild/internal/coder"
	"github.com/autobuild/autobuild/internal/gitrun"
	"github.com/autobuild/autobuild/internal/memory"
	"github.com/autobuild/autobuild/internal/recovery"
	"github.com/autobuild/autobuild/internal/worktree"
)

var (
	buildSpecName   string
	buildPlanPath   string
	buildBedrock    bool
	buildAWSRegion  string
	buildGreenfield bool
	buildOpenPR     bool
)

var buildCmd = &cobra.Command{
	Use:   "build <spec-name>",
	Short: "Drive an implementation plan to completion in an isolated worktree",
	Long: `Build assembles the plan-driven subtask loop end to end: it creates
(or reattaches to) the spec's worktree, loads the implementation plan,
runs each eligible subtask through an agent session with concurrency-retry
backoff and rollback recovery, and — once the plan has no subtask left to
process — merges the worktree branch back onto the base branch and,
unless --greenfield is set, pushes it and opens a pull request.

Unlike "implement", which runs the original tiered multi-agent
decomposition pipeline, build drives the §2 plan/worktree/session/merge
control flow directly from an existing plan.json.

Examples:
  autobuild build add-retry-logic --plan .auto-claude/specs/add-retry-logic/plan.json
  autobuild build add-retry-logic --plan plan.json --greenfield`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildPlanPath, "plan", "", "path to the implementation plan JSON (defaults to <worktree>/.auto-claude/specs/<spec-name>/plan.json)")
	buildCmd.Flags().BoolVar(&buildBedrock, "bedrock", false, "use AWS Bedrock instead of the direct Anthropic API")
	buildCmd.Flags().StringVar(&buildAWSRegion, "aws-region", "", "AWS region for Bedrock (only used with --bedrock)")
	buildCmd.Flags().BoolVar(&buildGreenfield, "greenfield", false, "merge to base directly instead of pushing a branch and opening a pull request")
	buildCmd.Flags().BoolVar(&buildOpenPR, "open-pr", true, "push the branch and open a pull/merge request once the plan completes (ignored with --greenfield)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	buildSpecName = args[0]

	repoRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	wm, err := worktree.NewManager(repoRoot)
	if err != nil {
		return fmt.Errorf("create worktree manager: %w", err)
	}

	ctx := context.Background()
	info, err := wm.EnsureWorktree(ctx, buildSpecName, buildGreenfield)
	if err != nil {
		return fmt.Errorf("ensure worktree for %s: %w", buildSpecName, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "worktree ready: %s (branch %s)\n", info.Path, info.Branch)

	specDir := filepath.Join(repoRoot, ".auto-claude", "specs", buildSpecName)
	if err := os.MkdirAll(specDir, 0o755); err != nil {
		return fmt.Errorf("create spec directory: %w", err)
	}

	planPath := buildPlanPath
	if planPath == "" {
		planPath = filepath.Join(specDir, "plan.json")
	}

	recoveryMgr, err := recovery.NewManager(specDir)
	if err != nil {
		return fmt.Errorf("create recovery manager: %w", err)
	}

	client, err := agentclient.New(agentclient.Config{
		UseAWSBedrock: buildBedrock,
		AWSRegion:     buildAWSRegion,
	})
	if err != nil {
		return fmt.Errorf("create agent client: %w", err)
	}

	memStore, err := memory.Open(filepath.Join(specDir, "memory.db"), buildSpecName)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer memStore.Close()

	git := gitrun.NewRunner(info.Path, nil)

	deps := &coder.Deps{
		SpecDir:  specDir,
		PlanPath: planPath,
		Git:      git,
		Client:   client,
		Prompts:  agentclient.PromptBuilder{},
		Recovery: recoveryMgr,
		Memory:   memory.WithRetry(memStore, 0),
		Logf:     func(format string, a ...any) { fmt.Fprintf(cmd.OutOrStdout(), format+"\n", a...) },
	}

	summary, err := coder.Run(deps)
	if err != nil {
		return fmt.Errorf("run build loop: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "plan run complete: %d completed, %d failed, %d stuck\n",
		summary.Completed, summary.Failed, summary.Stuck)

	if summary.Failed > 0 || summary.Stuck > 0 {
		return fmt.Errorf("build loop finished with %d failed and %d stuck subtask(s); not merging", summary.Failed, summary.Stuck)
	}

	if buildGreenfield {
		if err := wm.MergeWorktree(buildSpecName, worktree.MergeOptions{DeleteAfter: true}); err != nil {
			return fmt.Errorf("merge worktree to base: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "merged %s onto %s\n", worktree.BranchName(buildSpecName), wm.BaseBranch())
		return nil
	}

	if !buildOpenPR {
		return nil
	}

	pr, err := wm.PushAndOpenPullRequest(ctx, worktree.PushOptions{SpecName: buildSpecName})
	if err != nil {
		return fmt.Errorf("push and open pull request: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pull request: %s\n", pr.URL)
	return nil
}
