package merge

import "time"

// FileMergeReport is one file's entry in a MergeReport.
type FileMergeReport struct {
	FilePath           string        `json:"file_path"`
	Decision           MergeDecision `json:"decision"`
	ConflictsDetected  int           `json:"conflicts_detected"`
	ConflictsResolved  int           `json:"conflicts_resolved"`
	ConflictsRemaining int           `json:"conflicts_remaining"`
	AICallsMade        int           `json:"ai_calls_made"`
	TokensUsed         int           `json:"tokens_used"`
	Explanation        string        `json:"explanation"`
}

// MergeReport is the §4.8 cumulative summary of one orchestrator run
// across every touched file.
type MergeReport struct {
	StartedAt           time.Time         `json:"started_at"`
	EndedAt             time.Time         `json:"ended_at"`
	Files               []FileMergeReport `json:"files"`
	FilesProcessed      int               `json:"files_processed"`
	FilesAutoMerged     int               `json:"files_auto_merged"`
	FilesAIMerged       int               `json:"files_ai_merged"`
	FilesNeedReview     int               `json:"files_need_review"`
	FilesFailed         int               `json:"files_failed"`
	ConflictsDetected   int               `json:"conflicts_detected"`
	ConflictsAutoResolved int             `json:"conflicts_auto_resolved"`
	ConflictsAIResolved int               `json:"conflicts_ai_resolved"`
	AICallsMade         int               `json:"ai_calls_made"`
	EstimatedTokensUsed int               `json:"estimated_tokens_used"`
	DurationSeconds     float64           `json:"duration_seconds"`
}

// Success reports whether every file merged without a hard failure (files
// needing human review still count as success — only FilesFailed doesn't).
func (r *MergeReport) Success() bool {
	return r.FilesFailed == 0
}

func (r *MergeReport) record(res SemanticMergeResult) {
	r.FilesProcessed++
	r.AICallsMade += res.AICallsMade
	r.EstimatedTokensUsed += res.TokensUsed
	r.ConflictsDetected += len(res.ConflictsResolved) + len(res.ConflictsRemaining)

	switch res.Decision {
	case DecisionAutoMerged, DecisionDirectCopy, DecisionNoOp:
		r.FilesAutoMerged++
		r.ConflictsAutoResolved += len(res.ConflictsResolved)
	case DecisionAIMerged:
		r.FilesAIMerged++
		r.ConflictsAIResolved += len(res.ConflictsResolved)
	case DecisionNeedsHumanReview:
		r.FilesNeedReview++
		r.ConflictsAutoResolved += len(res.ConflictsResolved)
	case DecisionFailed:
		r.FilesFailed++
	}

	r.Files = append(r.Files, FileMergeReport{
		FilePath:           res.FilePath,
		Decision:           res.Decision,
		ConflictsDetected:  len(res.ConflictsResolved) + len(res.ConflictsRemaining),
		ConflictsResolved:  len(res.ConflictsResolved),
		ConflictsRemaining: len(res.ConflictsRemaining),
		AICallsMade:        res.AICallsMade,
		TokensUsed:         res.TokensUsed,
		Explanation:        res.Explanation,
	})
}
