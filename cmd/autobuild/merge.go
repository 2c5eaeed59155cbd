package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/autobuild/autobuild/internal/merge"
	"github.com/autobuild/autobuild/internal/semantic"
	"github.com/spf13/cobra"
)

var (
	mergeBaseline string
	mergeTasks    []string
	mergeOutput   string
	mergeApply    bool
	mergeEnableAI bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge one or more task worktrees back onto a shared baseline",
	Long: `Merge reconciles the parallel edits made by one or more completed
subtasks against the baseline they branched from, using the semantic
analyzer to detect exactly which top-level functions and imports each task
touched rather than treating every edit as an opaque text diff.

A single task's changes are applied deterministically. Two or more tasks
touching the same file are checked for conflicts first; non-overlapping
edits are combined automatically, and conflicting ones go through the
auto-merge / AI-assist / human-review cascade.

Progress is streamed as newline-delimited JSON on stdout.

Examples:
  autobuild merge --baseline ./base --task ./worktrees/st-1 --task ./worktrees/st-2
  autobuild merge --baseline ./base --task ./worktrees/st-1 --apply`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeBaseline, "baseline", "", "directory holding the shared baseline file tree")
	mergeCmd.Flags().StringArrayVar(&mergeTasks, "task", nil, "a task worktree directory to merge (repeatable)")
	mergeCmd.Flags().StringVar(&mergeOutput, "output", "", "directory to write merged output into (defaults to <baseline>/.auto-claude/merge_output)")
	mergeCmd.Flags().BoolVar(&mergeApply, "apply", false, "write merged files directly into the baseline directory instead of a staging area")
	mergeCmd.Flags().BoolVar(&mergeEnableAI, "ai", false, "allow the AI-assisted resolver for conflicts a deterministic merge can't resolve")
}

func runMerge(cmd *cobra.Command, args []string) error {
	if mergeBaseline == "" {
		return fmt.Errorf("--baseline is required")
	}
	if len(mergeTasks) == 0 {
		return fmt.Errorf("at least one --task is required")
	}

	taskIDs := make([]string, len(mergeTasks))
	for i, dir := range mergeTasks {
		taskIDs[i] = filepath.Base(dir)
	}

	files, err := discoverTouchedFiles(mergeBaseline, mergeTasks)
	if err != nil {
		return fmt.Errorf("discover touched files: %w", err)
	}

	baselines := make(map[string]string, len(files))
	tasksByFile := make(map[string]map[string]merge.TaskSnapshot, len(files))

	for _, rel := range files {
		baselineContent, err := readFileOrEmpty(filepath.Join(mergeBaseline, rel))
		if err != nil {
			return fmt.Errorf("read baseline %s: %w", rel, err)
		}
		baselines[rel] = baselineContent

		for i, dir := range mergeTasks {
			taskPath := filepath.Join(dir, rel)
			if _, err := os.Stat(taskPath); err != nil {
				continue
			}
			taskContent, err := readFileOrEmpty(taskPath)
			if err != nil {
				return fmt.Errorf("read task file %s: %w", taskPath, err)
			}
			changes, hasMods := semantic.Analyze(rel, baselineContent, taskContent)
			if !hasMods {
				continue
			}
			if tasksByFile[rel] == nil {
				tasksByFile[rel] = map[string]merge.TaskSnapshot{}
			}
			tasksByFile[rel][taskIDs[i]] = merge.TaskSnapshot{
				TaskID:           taskIDs[i],
				Content:          taskContent,
				HasModifications: hasMods,
				SemanticChanges:  changes,
			}
		}
	}

	orch := &merge.MergeOrchestrator{
		Pipeline: merge.MergePipeline{
			Resolver: merge.ConflictResolver{EnableAI: mergeEnableAI},
			Progress: merge.NewProgressEmitter(cmd.OutOrStdout()),
		},
		Lock:           merge.NewMergeLock(filepath.Join(mergeBaseline, ".autobuild-merge.lock"), 10*time.Minute),
		ProjectRoot:    mergeBaseline,
		OutputDir:      mergeOutput,
		ApplyToProject: mergeApply,
	}

	report, err := orch.Run(baselines, tasksByFile)
	if err != nil {
		return fmt.Errorf("run merge: %w", err)
	}

	summary, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal merge report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(summary))

	if !report.Success() {
		return fmt.Errorf("merge failed on %d file(s)", report.FilesFailed)
	}
	return nil
}

// discoverTouchedFiles walks the baseline tree and every task tree,
// returning the sorted, deduplicated set of relative paths present in at
// least one of them.
func discoverTouchedFiles(baseline string, tasks []string) ([]string, error) {
	seen := map[string]bool{}
	for _, root := range append([]string{baseline}, tasks...) {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" || d.Name() == ".auto-claude" {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			seen[rel] = true
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func readFileOrEmpty(path string) (string, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}
