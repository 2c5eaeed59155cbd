package merge

import (
	"fmt"
	"sort"
	"strings"
)

// MergePipeline implements §4.8's per-file merge decision: a direct
// single-task apply/copy when only one task touched the file, or the
// conflict-detect-then-resolve cascade when more than one did.
type MergePipeline struct {
	Detector ConflictDetector
	Auto     AutoMerger
	Resolver ConflictResolver
	Progress *ProgressEmitter
}

// MergeSingleTask applies §4.8's single-task rule: a non-empty semantic
// diff is applied deterministically; a file the analyzer flagged as
// modified but couldn't diff is copied through directly; anything else is
// a no-op.
func (p MergePipeline) MergeSingleTask(filePath, baseline string, snap TaskSnapshot) SemanticMergeResult {
	if len(snap.SemanticChanges) > 0 {
		merged := p.Auto.ApplySingleTask(filePath, baseline, snap)
		return SemanticMergeResult{
			FilePath:      filePath,
			Decision:      DecisionAutoMerged,
			MergedContent: &merged,
			Explanation:   fmt.Sprintf("applied %d semantic change(s) from task %s", len(snap.SemanticChanges), snap.TaskID),
		}
	}
	if snap.HasModifications {
		content := snap.Content
		return SemanticMergeResult{
			FilePath:      filePath,
			Decision:      DecisionDirectCopy,
			MergedContent: &content,
			Explanation:   fmt.Sprintf("task %s modified %s in a way the analyzer couldn't express; copied directly", snap.TaskID, filePath),
		}
	}
	return SemanticMergeResult{FilePath: filePath, Decision: DecisionNoOp, Explanation: "no modifications"}
}

// MergeMultiTask implements §4.8's multi-task rule: build a FileAnalysis
// per task, detect conflicts, and either combine cleanly or run the
// resolution cascade.
func (p MergePipeline) MergeMultiTask(filePath, baseline string, snapshots map[string]TaskSnapshot) SemanticMergeResult {
	ids := make([]string, 0, len(snapshots))
	for id := range snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	analyses := make(map[string]FileAnalysis, len(snapshots))
	for _, id := range ids {
		analyses[id] = BuildFileAnalysis(filePath, snapshots[id].SemanticChanges)
	}

	if p.Progress != nil {
		p.Progress.Emit(StageDetectingConflicts, 25, "detecting conflicts in "+filePath, map[string]any{"current_file": filePath})
	}
	zones := p.Detector.DetectConflicts(filePath, analyses, snapshots)

	if len(zones) == 0 {
		merged := p.Auto.CombineNonConflicting(filePath, baseline, ids, snapshots)
		return SemanticMergeResult{
			FilePath:      filePath,
			Decision:      DecisionAutoMerged,
			MergedContent: &merged,
			Explanation:   fmt.Sprintf("combined non-conflicting changes from %d task(s)", len(ids)),
		}
	}

	res := p.Resolver.Resolve(filePath, baseline, zones, snapshots)
	decision := decide(res)
	result := SemanticMergeResult{
		FilePath:           filePath,
		Decision:           decision,
		MergedContent:      &res.Content,
		ConflictsResolved:  res.Resolved,
		ConflictsRemaining: res.Remaining,
		AICallsMade:        res.AICallsMade,
		TokensUsed:         res.TokensUsed,
		Explanation:        buildExplanation(res),
	}
	return result
}

// buildExplanation renders a human-readable summary of a resolution,
// listing up to the first 5 resolved/remaining conflicts and truncating
// the rest with a count.
func buildExplanation(res ConflictResolution) string {
	var b strings.Builder
	if len(res.Resolved) > 0 {
		b.WriteString(fmt.Sprintf("resolved %d conflict(s): ", len(res.Resolved)))
		b.WriteString(summarizeZones(res.Resolved))
	}
	if len(res.Remaining) > 0 {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fmt.Sprintf("%d conflict(s) need human review: ", len(res.Remaining)))
		b.WriteString(summarizeZones(res.Remaining))
	}
	if b.Len() == 0 {
		return "no conflicts"
	}
	return b.String()
}

func summarizeZones(zones []ConflictZone) string {
	const max = 5
	names := make([]string, 0, len(zones))
	for i, z := range zones {
		if i >= max {
			break
		}
		names = append(names, z.Target)
	}
	out := strings.Join(names, ", ")
	if len(zones) > max {
		out += fmt.Sprintf(" ... and %d more", len(zones)-max)
	}
	return out
}
