package merge

import (
	"encoding/json"
	"fmt"
	"io"
)

// ProgressStage names one phase of the merge pipeline's NDJSON progress
// stream, each owning a percent range: analyzing 0-25, detecting_conflicts
// 25-50, resolving 50-75, validating 75-100, plus the terminal complete
// and error markers.
type ProgressStage string

const (
	StageAnalyzing          ProgressStage = "analyzing"
	StageDetectingConflicts ProgressStage = "detecting_conflicts"
	StageResolving          ProgressStage = "resolving"
	StageValidating         ProgressStage = "validating"
	StageComplete           ProgressStage = "complete"
	StageError              ProgressStage = "error"
)

// ProgressEvent is one line of the NDJSON progress stream emitted to the
// caller (normally stdout) while a merge runs.
type ProgressEvent struct {
	Type    string         `json:"type"`
	Stage   ProgressStage  `json:"stage"`
	Percent int            `json:"percent"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ProgressEmitter writes progress events as newline-delimited JSON,
// clamping percent to [0, 100].
type ProgressEmitter struct {
	w io.Writer
}

func NewProgressEmitter(w io.Writer) *ProgressEmitter {
	return &ProgressEmitter{w: w}
}

func (p *ProgressEmitter) Emit(stage ProgressStage, percent int, message string, details map[string]any) error {
	if p == nil || p.w == nil {
		return nil
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	evt := ProgressEvent{Type: "progress", Stage: stage, Percent: percent, Message: message, Details: details}
	line, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.w, string(line))
	return err
}

// conflictPercent is the per-conflict interpolation within the resolving
// stage's 50-75% range.
func conflictPercent(idx, total int) int {
	if total <= 0 {
		total = 1
	}
	return 50 + int((float64(idx+1)/float64(total))*25)
}
