package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MergeOrchestrator drives the §4.8 pipeline across every file touched by
// one or more tasks, writing merged output either into the
// .auto-claude/merge_output staging area or directly into the project
// tree, and emitting NDJSON progress throughout.
type MergeOrchestrator struct {
	Pipeline       MergePipeline
	Lock           *MergeLock
	ProjectRoot    string
	OutputDir      string // defaults to filepath.Join(ProjectRoot, ".auto-claude/merge_output")
	ApplyToProject bool
}

func (o *MergeOrchestrator) outputDir() string {
	if o.OutputDir != "" {
		return o.OutputDir
	}
	return filepath.Join(o.ProjectRoot, ".auto-claude", "merge_output")
}

func (o *MergeOrchestrator) targetPath(filePath string) string {
	if o.ApplyToProject {
		return filepath.Join(o.ProjectRoot, filePath)
	}
	return filepath.Join(o.outputDir(), filePath)
}

// Run merges every file in baselines against the task snapshots that
// touched it. tasksByFile maps a file path to the snapshots (keyed by task
// ID) of every task that modified it; a file with exactly one snapshot
// takes the single-task path, more than one takes the conflict-aware
// multi-task path.
func (o *MergeOrchestrator) Run(baselines map[string]string, tasksByFile map[string]map[string]TaskSnapshot) (*MergeReport, error) {
	if o.Lock != nil {
		if err := o.Lock.Acquire(); err != nil {
			return nil, fmt.Errorf("acquire merge lock: %w", err)
		}
		defer o.Lock.Release()
	}

	report := &MergeReport{StartedAt: time.Now()}
	progress := o.Pipeline.Progress

	files := make([]string, 0, len(tasksByFile))
	for f := range tasksByFile {
		files = append(files, f)
	}
	sort.Strings(files)

	if progress != nil {
		progress.Emit(StageAnalyzing, 0, fmt.Sprintf("analyzing %d file(s)", len(files)), nil)
	}

	for i, filePath := range files {
		snapshots := tasksByFile[filePath]
		baseline := baselines[filePath]

		if progress != nil {
			pct := int((float64(i) / float64(max(len(files), 1))) * 25)
			progress.Emit(StageAnalyzing, pct, "analyzing "+filePath, map[string]any{"current_file": filePath})
		}

		var res SemanticMergeResult
		if len(snapshots) == 1 {
			for _, snap := range snapshots {
				res = o.Pipeline.MergeSingleTask(filePath, baseline, snap)
			}
		} else {
			res = o.Pipeline.MergeMultiTask(filePath, baseline, snapshots)
		}

		if res.Decision != DecisionNoOp && res.MergedContent != nil {
			if err := o.writeFile(filePath, *res.MergedContent); err != nil {
				res.Decision = DecisionFailed
				res.Explanation = fmt.Sprintf("failed to write merged output: %v", err)
			}
		}

		report.record(res)
	}

	if progress != nil {
		progress.Emit(StageValidating, 90, "validating merge output", nil)
	}

	report.EndedAt = time.Now()
	report.DurationSeconds = report.EndedAt.Sub(report.StartedAt).Seconds()

	if progress != nil {
		if report.Success() {
			progress.Emit(StageComplete, 100, "merge complete", map[string]any{"files_processed": report.FilesProcessed})
		} else {
			progress.Emit(StageError, 100, fmt.Sprintf("%d file(s) failed to merge", report.FilesFailed), nil)
		}
	}

	return report, nil
}

func (o *MergeOrchestrator) writeFile(filePath, content string) error {
	target := o.targetPath(filePath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, []byte(content), 0o644)
}
