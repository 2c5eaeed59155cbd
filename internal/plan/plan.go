// Package plan implements the typed implementation-plan data model: phases,
// subtasks, status transitions, progress accounting, and persistence.
package plan

import "time"

// SubtaskStatus is the lifecycle state of a Subtask.
type SubtaskStatus string

const (
	StatusPending    SubtaskStatus = "pending"
	StatusInProgress SubtaskStatus = "in_progress"
	StatusCompleted  SubtaskStatus = "completed"
	StatusBlocked    SubtaskStatus = "blocked"
	StatusFailed     SubtaskStatus = "failed"
)

// Valid reports whether s is a known subtask status.
func (s SubtaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked, StatusFailed:
		return true
	default:
		return false
	}
}

// PhaseType classifies the kind of work a phase performs.
type PhaseType string

const (
	PhaseSetup          PhaseType = "setup"
	PhaseImplementation PhaseType = "implementation"
	PhaseInvestigation  PhaseType = "investigation"
	PhaseIntegration    PhaseType = "integration"
	PhaseCleanup        PhaseType = "cleanup"
)

func (t PhaseType) Valid() bool {
	switch t {
	case PhaseSetup, PhaseImplementation, PhaseInvestigation, PhaseIntegration, PhaseCleanup:
		return true
	default:
		return false
	}
}

// WorkflowType classifies the overall shape of the implementation plan.
type WorkflowType string

const (
	WorkflowFeature       WorkflowType = "feature"
	WorkflowRefactor      WorkflowType = "refactor"
	WorkflowInvestigation WorkflowType = "investigation"
	WorkflowMigration     WorkflowType = "migration"
	WorkflowSimple        WorkflowType = "simple"
	WorkflowDevelopment   WorkflowType = "development"
	WorkflowEnhancement   WorkflowType = "enhancement"
)

func (w WorkflowType) Valid() bool {
	switch w {
	case WorkflowFeature, WorkflowRefactor, WorkflowInvestigation, WorkflowMigration,
		WorkflowSimple, WorkflowDevelopment, WorkflowEnhancement:
		return true
	default:
		return false
	}
}

// SurfaceStatus is the plan's user-facing lifecycle stage.
type SurfaceStatus string

const (
	SurfaceBacklog      SurfaceStatus = "backlog"
	SurfaceInProgress   SurfaceStatus = "in_progress"
	SurfaceAIReview     SurfaceStatus = "ai_review"
	SurfaceHumanReview  SurfaceStatus = "human_review"
	SurfaceDone         SurfaceStatus = "done"
)

// PlanStatus is the plan's internal workflow status, paired with SurfaceStatus.
type PlanStatus string

const (
	PlanPending    PlanStatus = "pending"
	PlanInProgress PlanStatus = "in_progress"
	PlanReview     PlanStatus = "review"
	PlanCompleted  PlanStatus = "completed"
)

// VerificationKind names how a subtask's completion is checked.
type VerificationKind string

const (
	VerificationCommand   VerificationKind = "command"
	VerificationAPI       VerificationKind = "api"
	VerificationBrowser   VerificationKind = "browser"
	VerificationComponent VerificationKind = "component"
	VerificationManual    VerificationKind = "manual"
	VerificationNone      VerificationKind = "none"
)

func (k VerificationKind) Valid() bool {
	switch k {
	case VerificationCommand, VerificationAPI, VerificationBrowser, VerificationComponent, VerificationManual, VerificationNone:
		return true
	default:
		return false
	}
}

// Verification describes how to check that a subtask is actually done.
// The spec leaves this weakly typed on purpose (§9 Open Questions): a
// command verification with no Run, or a browser verification with no
// Scenario, parses without error. Validate is an opt-in strictness check
// callers may run explicitly; Load never calls it.
type Verification struct {
	Kind VerificationKind `json:"kind"`

	// Command verification.
	Run string `json:"run,omitempty"`

	// API verification.
	URL            string `json:"url,omitempty"`
	Method         string `json:"method,omitempty"`
	ExpectedStatus int    `json:"expected_status,omitempty"`
	MatchSubstring string `json:"match_substring,omitempty"`

	// Browser / component / manual verification.
	Scenario string `json:"scenario,omitempty"`
}

// Validate returns a descriptive error when the verification is missing
// fields its own Kind requires. Never called implicitly by Load.
func (v *Verification) Validate() error {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case VerificationCommand:
		if v.Run == "" {
			return errMissingField(v.Kind, "run")
		}
	case VerificationAPI:
		if v.URL == "" {
			return errMissingField(v.Kind, "url")
		}
	case VerificationBrowser, VerificationComponent:
		if v.Scenario == "" {
			return errMissingField(v.Kind, "scenario")
		}
	}
	return nil
}

// Subtask is the atomic unit of work within a phase.
type Subtask struct {
	ID                string            `json:"id"`
	Description       string            `json:"description"`
	Status            SubtaskStatus     `json:"status"`
	Service           string            `json:"service,omitempty"`
	AllServices       bool              `json:"all_services,omitempty"`
	FilesToModify     []string          `json:"files_to_modify,omitempty"`
	FilesToCreate     []string          `json:"files_to_create,omitempty"`
	PatternsFrom      []string          `json:"patterns_from,omitempty"`
	Verification      *Verification     `json:"verification,omitempty"`
	ExpectedOutput    string            `json:"expected_output,omitempty"`
	ActualOutput      string            `json:"actual_output,omitempty"`
	StartedAt         *time.Time        `json:"started_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	SessionID         string            `json:"session_id,omitempty"`
	Critique          map[string]any    `json:"critique,omitempty"`
}

// Start transitions the subtask to in_progress, recording the session that
// owns this attempt. StartedAt is set only the first time a subtask enters
// in_progress; ActualOutput from a prior attempt is cleared.
func (s *Subtask) Start(sessionID string) {
	s.Status = StatusInProgress
	s.SessionID = sessionID
	if s.StartedAt == nil {
		now := time.Now()
		s.StartedAt = &now
	}
	s.ActualOutput = ""
}

// Complete marks the subtask done, setting CompletedAt.
func (s *Subtask) Complete(actualOutput string) {
	s.Status = StatusCompleted
	s.ActualOutput = actualOutput
	now := time.Now()
	s.CompletedAt = &now
}

// Fail marks the subtask failed with an optional reason recorded as
// ActualOutput, matching the original's `Subtask.fail` behavior.
func (s *Subtask) Fail(reason string) {
	s.Status = StatusFailed
	if reason != "" {
		s.ActualOutput = "FAILED: " + reason
	}
}

// Reset returns the subtask to pending, clearing timing fields — used by
// the recovery manager's retry action and by reset_for_followup-style flows.
func (s *Subtask) Reset() {
	s.Status = StatusPending
	s.StartedAt = nil
	s.CompletedAt = nil
	s.ActualOutput = ""
}

// Phase is an ordered group of subtasks with DAG dependencies on other
// phases (by number). The spec explicitly does not enforce acyclicity here;
// a phase depending on itself is accepted by Load (it will simply never
// satisfy AvailablePhases' predicate).
type Phase struct {
	Number       int        `json:"phase"`
	Name         string     `json:"name"`
	Type         PhaseType  `json:"type"`
	DependsOn    []int      `json:"depends_on,omitempty"`
	ParallelSafe bool       `json:"parallel_safe,omitempty"`
	Subtasks     []*Subtask `json:"subtasks"`
}

// IsComplete reports whether every subtask in the phase is completed. An
// empty phase is vacuously complete.
func (p *Phase) IsComplete() bool {
	for _, st := range p.Subtasks {
		if st.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// satisfiedBy reports whether every phase number p depends on appears in
// the completed set.
func (p *Phase) satisfiedBy(completedPhases map[int]bool) bool {
	for _, dep := range p.DependsOn {
		if !completedPhases[dep] {
			return false
		}
	}
	return true
}

// firstPendingSubtask returns the first pending subtask in declaration
// order, skipping blocked subtasks entirely.
func (p *Phase) firstPendingSubtask() *Subtask {
	for _, st := range p.Subtasks {
		if st.Status == StatusPending {
			return st
		}
	}
	return nil
}

// QASignoff is the optional human quality-assurance approval blob attached
// to a completed plan.
type QASignoff struct {
	Approved bool      `json:"approved"`
	Reviewer string    `json:"reviewer,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	At       time.Time `json:"at,omitempty"`
}

// ImplementationPlan is the top-level, persisted plan object for one spec.
type ImplementationPlan struct {
	Feature         string        `json:"feature"`
	WorkflowType    WorkflowType  `json:"workflow_type"`
	Services        []string      `json:"services,omitempty"`
	Phases          []*Phase      `json:"phases"`
	FinalAcceptance []string      `json:"final_acceptance,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	SpecFile        string        `json:"spec_file,omitempty"`
	Status          SurfaceStatus `json:"status"`
	PlanStatus      PlanStatus    `json:"plan_status"`
	RecoveryNote    string        `json:"recovery_note,omitempty"`
	QASignoff       *QASignoff    `json:"qa_signoff,omitempty"`
}

// Progress summarizes subtask counts across the whole plan.
type Progress struct {
	TotalPhases       int  `json:"total_phases"`
	CompletedPhases   int  `json:"completed_phases"`
	TotalSubtasks     int  `json:"total_subtasks"`
	CompletedSubtasks int  `json:"completed_subtasks"`
	FailedSubtasks    int  `json:"failed_subtasks"`
	PercentComplete   int  `json:"percent_complete"`
	IsComplete        bool `json:"is_complete"`
}

// Progress computes the §4.1 progress accounting.
func (p *ImplementationPlan) Progress() Progress {
	var out Progress
	out.TotalPhases = len(p.Phases)
	for _, ph := range p.Phases {
		if ph.IsComplete() {
			out.CompletedPhases++
		}
		for _, st := range ph.Subtasks {
			out.TotalSubtasks++
			switch st.Status {
			case StatusCompleted:
				out.CompletedSubtasks++
			case StatusFailed:
				out.FailedSubtasks++
			}
		}
	}
	if out.TotalSubtasks > 0 {
		out.PercentComplete = (out.CompletedSubtasks * 100) / out.TotalSubtasks
	}
	out.IsComplete = out.TotalSubtasks > 0 &&
		out.CompletedSubtasks == out.TotalSubtasks &&
		out.FailedSubtasks == 0
	return out
}

// NextSubtask scans phases in declaration order and returns the first
// pending subtask of the first phase whose dependencies are all satisfied.
func (p *ImplementationPlan) NextSubtask() (*Phase, *Subtask, bool) {
	completed := p.completedPhaseSet()
	for _, ph := range p.Phases {
		if !ph.satisfiedBy(completed) {
			continue
		}
		if st := ph.firstPendingSubtask(); st != nil {
			return ph, st, true
		}
	}
	return nil, nil, false
}

// FindSubtask looks up a subtask by id across every phase, returning the
// owning phase alongside it. Used by the recovery manager's retry action
// (reset_subtask) and by post-session reconciliation.
func (p *ImplementationPlan) FindSubtask(id string) (*Phase, *Subtask, bool) {
	for _, ph := range p.Phases {
		for _, st := range ph.Subtasks {
			if st.ID == id {
				return ph, st, true
			}
		}
	}
	return nil, nil, false
}

// AvailablePhases returns every phase whose dependencies are satisfied and
// which is not yet complete, in declaration order.
func (p *ImplementationPlan) AvailablePhases() []*Phase {
	completed := p.completedPhaseSet()
	var out []*Phase
	for _, ph := range p.Phases {
		if ph.IsComplete() {
			continue
		}
		if ph.satisfiedBy(completed) {
			out = append(out, ph)
		}
	}
	return out
}

func (p *ImplementationPlan) completedPhaseSet() map[int]bool {
	set := make(map[int]bool, len(p.Phases))
	for _, ph := range p.Phases {
		if ph.IsComplete() {
			set[ph.Number] = true
		}
	}
	return set
}

// AddFollowupPhase appends a new phase numbered one past the current
// maximum, depending on every existing phase number, and moves the plan
// back into in_progress with QA sign-off cleared.
func (p *ImplementationPlan) AddFollowupPhase(name string, subtasks []*Subtask, phaseType PhaseType, parallelSafe bool) *Phase {
	maxNum := 0
	dependsOn := make([]int, 0, len(p.Phases))
	for _, ph := range p.Phases {
		if ph.Number > maxNum {
			maxNum = ph.Number
		}
		dependsOn = append(dependsOn, ph.Number)
	}
	if phaseType == "" {
		phaseType = PhaseImplementation
	}
	np := &Phase{
		Number:       maxNum + 1,
		Name:         name,
		Type:         phaseType,
		DependsOn:    dependsOn,
		ParallelSafe: parallelSafe,
		Subtasks:     subtasks,
	}
	p.Phases = append(p.Phases, np)
	p.Status = SurfaceInProgress
	p.PlanStatus = PlanInProgress
	p.QASignoff = nil
	return np
}

// ResetForFollowup clears QA sign-off and the recovery note and moves the
// plan back to in_progress/in_progress, but only when the plan is currently
// done/ai_review/human_review, or every subtask is already completed. It
// returns whether it actually fired.
func (p *ImplementationPlan) ResetForFollowup() bool {
	eligible := p.Status == SurfaceDone || p.Status == SurfaceAIReview || p.Status == SurfaceHumanReview
	if !eligible {
		eligible = p.allSubtasksCompleted()
	}
	if !eligible {
		return false
	}
	p.QASignoff = nil
	p.RecoveryNote = ""
	p.Status = SurfaceInProgress
	p.PlanStatus = PlanInProgress
	return true
}

func (p *ImplementationPlan) allSubtasksCompleted() bool {
	found := false
	for _, ph := range p.Phases {
		for _, st := range ph.Subtasks {
			found = true
			if st.Status != StatusCompleted {
				return false
			}
		}
	}
	return found
}

// deriveStatus applies the §3 derived-status rule. Called by Save on every
// write so the persisted surface status always reflects current subtask
// state.
func (p *ImplementationPlan) deriveStatus() {
	total, completed, failed, inProgress := 0, 0, 0, 0
	for _, ph := range p.Phases {
		for _, st := range ph.Subtasks {
			total++
			switch st.Status {
			case StatusCompleted:
				completed++
			case StatusFailed:
				failed++
			case StatusInProgress:
				inProgress++
			}
		}
	}

	switch {
	case total == 0:
		p.Status, p.PlanStatus = SurfaceBacklog, PlanPending
	case completed == total && p.QASignoff != nil && p.QASignoff.Approved:
		p.Status, p.PlanStatus = SurfaceHumanReview, PlanReview
	case completed == total:
		p.Status, p.PlanStatus = SurfaceAIReview, PlanReview
	case failed > 0 || inProgress > 0 || completed > 0:
		p.Status, p.PlanStatus = SurfaceInProgress, PlanInProgress
	default:
		p.Status, p.PlanStatus = SurfaceBacklog, PlanPending
	}
}

func errMissingField(kind VerificationKind, field string) error {
	return &verificationError{kind: kind, field: field}
}

type verificationError struct {
	kind  VerificationKind
	field string
}

func (e *verificationError) Error() string {
	return "verification kind " + string(e.kind) + " missing required field " + e.field
}
