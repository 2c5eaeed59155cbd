package merge

import "github.com/autobuild/autobuild/internal/semantic"

// ConflictSeverity ranks how risky a semantic conflict is to resolve
// automatically.
type ConflictSeverity string

const (
	SeverityLow    ConflictSeverity = "low"
	SeverityMedium ConflictSeverity = "medium"
	SeverityHigh   ConflictSeverity = "high"
)

// MergeStrategyKind names a deterministic resolution the auto-merger
// already knows how to apply, as opposed to one that needs an AI call or
// a human.
type MergeStrategyKind string

const (
	StrategyDedup   MergeStrategyKind = "dedup"
	StrategyCombine MergeStrategyKind = "combine"
)

// ConflictZone is one region of a file where two or more tasks edited the
// same named entity in incompatible ways. Distinct from the git-conflict-
// marker ConflictRegion used by the interactive/smart-merge surface
// elsewhere in this package: a ConflictZone is detected from the semantic
// diff of task snapshots, before any git merge is attempted.
type ConflictZone struct {
	Location      string
	ChangeType    semantic.ChangeType
	Target        string
	TaskIDs       []string
	Severity      ConflictSeverity
	CanAutoMerge  bool
	MergeStrategy MergeStrategyKind
	Reason        string
}

// MergeDecision is the final disposition the pipeline reached for one
// file.
type MergeDecision string

const (
	DecisionAutoMerged       MergeDecision = "auto_merged"
	DecisionAIMerged         MergeDecision = "ai_merged"
	DecisionNeedsHumanReview MergeDecision = "needs_human_review"
	DecisionFailed           MergeDecision = "failed"
	DecisionDirectCopy       MergeDecision = "direct_copy"
	DecisionNoOp             MergeDecision = "no_op"
)

// SemanticMergeResult is the outcome of merging one file across one or
// more task snapshots.
type SemanticMergeResult struct {
	FilePath           string
	Decision           MergeDecision
	MergedContent      *string
	Explanation        string
	ConflictsResolved  []ConflictZone
	ConflictsRemaining []ConflictZone
	AICallsMade        int
	TokensUsed         int
}

// TaskSnapshot is one task's version of a file: its full content plus the
// semantic changes it made relative to the shared baseline.
type TaskSnapshot struct {
	TaskID           string
	Content          string
	HasModifications bool
	SemanticChanges  []semantic.SemanticChange
}

// FileAnalysis buckets one task's SemanticChange list for a file into the
// sets the conflict detector compares pairwise across tasks.
type FileAnalysis struct {
	FilePath          string
	Changes           []semantic.SemanticChange
	FunctionsAdded    map[string]bool
	FunctionsModified map[string]bool
	FunctionsRemoved  map[string]bool
	ImportsAdded      map[string]bool
	ImportsRemoved    map[string]bool
	TotalLinesChanged int
}

// BuildFileAnalysis buckets a task's semantic changes for conflict
// detection, mirroring the original pipeline's _build_task_analyses.
func BuildFileAnalysis(filePath string, changes []semantic.SemanticChange) FileAnalysis {
	fa := FileAnalysis{
		FilePath:          filePath,
		Changes:           changes,
		FunctionsAdded:    map[string]bool{},
		FunctionsModified: map[string]bool{},
		FunctionsRemoved:  map[string]bool{},
		ImportsAdded:      map[string]bool{},
		ImportsRemoved:    map[string]bool{},
	}
	for _, c := range changes {
		fa.TotalLinesChanged += c.LineEnd - c.LineStart + 1
		switch c.ChangeType {
		case semantic.AddFunction:
			fa.FunctionsAdded[c.Target] = true
		case semantic.ModifyFunction:
			fa.FunctionsModified[c.Target] = true
		case semantic.RemoveFunction:
			fa.FunctionsRemoved[c.Target] = true
		case semantic.AddImport:
			fa.ImportsAdded[c.Target] = true
		case semantic.RemoveImport:
			fa.ImportsRemoved[c.Target] = true
		}
	}
	return fa
}
