package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/autobuild/autobuild/internal/errs"
)

// phaseWire is the on-disk shape of a Phase: it accepts both the current
// "subtasks" key and the legacy "chunks" alias on read, and always writes
// both keys on save for backwards compatibility with older tooling.
type phaseWire struct {
	Number       int              `json:"phase"`
	Name         string           `json:"name"`
	Type         json.RawMessage  `json:"type,omitempty"`
	DependsOn    []int            `json:"depends_on,omitempty"`
	ParallelSafe bool             `json:"parallel_safe,omitempty"`
	Subtasks     []*Subtask       `json:"subtasks,omitempty"`
	Chunks       []*Subtask       `json:"chunks,omitempty"`
}

// planWire is the on-disk shape of ImplementationPlan: accepts the legacy
// "title" alias for "feature" and tolerates an unrecognized workflow_type.
type planWire struct {
	Feature         string          `json:"feature,omitempty"`
	Title           string          `json:"title,omitempty"`
	WorkflowType    json.RawMessage `json:"workflow_type,omitempty"`
	Services        []string        `json:"services,omitempty"`
	Phases          []phaseWire     `json:"phases,omitempty"`
	FinalAcceptance []string        `json:"final_acceptance,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	SpecFile        string          `json:"spec_file,omitempty"`
	Status          SurfaceStatus   `json:"status,omitempty"`
	PlanStatus      PlanStatus      `json:"plan_status,omitempty"`
	RecoveryNote    string          `json:"recovery_note,omitempty"`
	QASignoff       *QASignoff      `json:"qa_signoff,omitempty"`
}

// Load parses a JSON implementation-plan document. Unknown workflow_type
// values fall back to "feature" with a warning logged through logf (nil
// means silence). Missing feature/workflow_type/phases are filled from
// defaults. Unknown phase types or subtask statuses are hard errors: they
// indicate a structurally malformed document, unlike a merely-unrecognized
// workflow_type, which is cosmetic.
func Load(path string, logf func(string, ...any)) (*ImplementationPlan, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.KindMalformedPlan, fmt.Sprintf("reading plan: %v", err), "")
	}

	var wire planWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, errs.New(errs.KindMalformedPlan, fmt.Sprintf("parsing plan JSON: %v", err), "")
	}

	p := &ImplementationPlan{
		Services:        wire.Services,
		FinalAcceptance: wire.FinalAcceptance,
		CreatedAt:       wire.CreatedAt,
		UpdatedAt:       wire.UpdatedAt,
		SpecFile:        wire.SpecFile,
		Status:          wire.Status,
		PlanStatus:      wire.PlanStatus,
		RecoveryNote:    wire.RecoveryNote,
		QASignoff:       wire.QASignoff,
	}

	p.Feature = wire.Feature
	if p.Feature == "" {
		p.Feature = wire.Title
	}

	p.WorkflowType = parseWorkflowType(wire.WorkflowType, logf)

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Status == "" {
		p.Status = SurfaceBacklog
	}
	if p.PlanStatus == "" {
		p.PlanStatus = PlanPending
	}

	for i, pw := range wire.Phases {
		ph, err := pw.toPhase(i)
		if err != nil {
			return nil, errs.New(errs.KindMalformedPlan, err.Error(), "")
		}
		p.Phases = append(p.Phases, ph)
	}

	return p, nil
}

func parseWorkflowType(raw json.RawMessage, logf func(string, ...any)) WorkflowType {
	if len(raw) == 0 {
		return WorkflowFeature
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		logf("plan: workflow_type not a string, defaulting to feature")
		return WorkflowFeature
	}
	wt := WorkflowType(s)
	if !wt.Valid() {
		logf("plan: unknown workflow_type %q, defaulting to feature", s)
		return WorkflowFeature
	}
	return wt
}

func (pw phaseWire) toPhase(index int) (*Phase, error) {
	number := pw.Number
	if number == 0 {
		number = index + 1
	}

	phaseType := PhaseImplementation
	if len(pw.Type) > 0 {
		var s string
		if err := json.Unmarshal(pw.Type, &s); err != nil {
			return nil, fmt.Errorf("phase %d: type is not a string", number)
		}
		if s != "" {
			phaseType = PhaseType(s)
			if !phaseType.Valid() {
				return nil, fmt.Errorf("phase %d: unknown phase type %q", number, s)
			}
		}
	}

	subtasks := pw.Subtasks
	if subtasks == nil {
		subtasks = pw.Chunks
	}
	for _, st := range subtasks {
		if st.Status == "" {
			st.Status = StatusPending
			continue
		}
		if !st.Status.Valid() {
			return nil, fmt.Errorf("phase %d: subtask %q has unknown status %q", number, st.ID, st.Status)
		}
	}

	return &Phase{
		Number:       number,
		Name:         pw.Name,
		Type:         phaseType,
		DependsOn:    pw.DependsOn,
		ParallelSafe: pw.ParallelSafe,
		Subtasks:     subtasks,
	}, nil
}

// Save atomically persists the plan to path: re-derives the surface status,
// bumps UpdatedAt, writes to a temp file in the same directory, then
// renames over the target so readers never observe a torn write.
func (p *ImplementationPlan) Save(path string) error {
	p.deriveStatus()
	p.UpdatedAt = time.Now()

	wire := planWire{
		Feature:         p.Feature,
		WorkflowType:    mustMarshal(p.WorkflowType),
		Services:        p.Services,
		FinalAcceptance: p.FinalAcceptance,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		SpecFile:        p.SpecFile,
		Status:          p.Status,
		PlanStatus:      p.PlanStatus,
		RecoveryNote:    p.RecoveryNote,
		QASignoff:       p.QASignoff,
	}
	for _, ph := range p.Phases {
		wire.Phases = append(wire.Phases, phaseWire{
			Number:       ph.Number,
			Name:         ph.Name,
			Type:         mustMarshal(ph.Type),
			DependsOn:    ph.DependsOn,
			ParallelSafe: ph.ParallelSafe,
			Subtasks:     ph.Subtasks,
			Chunks:       ph.Subtasks,
		})
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".plan-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp plan file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp plan file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp plan file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename plan file: %w", err)
	}
	return nil
}

func mustMarshal[T ~string](v T) json.RawMessage {
	b, _ := json.Marshal(string(v))
	return b
}
