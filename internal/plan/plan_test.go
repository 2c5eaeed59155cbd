package plan

import (
	"os"
	"path/filepath"
	"testing"
)

func samplePlan() *ImplementationPlan {
	return &ImplementationPlan{
		Feature:      "A",
		WorkflowType: WorkflowFeature,
		Phases: []*Phase{
			{
				Number: 1,
				Name:   "P1",
				Type:   PhaseImplementation,
				Subtasks: []*Subtask{
					{ID: "t1", Description: "x", Status: StatusPending},
				},
			},
		},
		Status:     SurfaceBacklog,
		PlanStatus: PlanPending,
	}
}

func TestLoadAcceptsChunksAlias(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	doc := `{"feature":"A","workflow_type":"feature","phases":[{"phase":1,"name":"P1","chunks":[{"id":"t1","description":"x","status":"pending"}]}]}`
	writeFile(t, path, doc)

	p, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Phases) != 1 || len(p.Phases[0].Subtasks) != 1 {
		t.Fatalf("expected one phase with one subtask from chunks alias, got %+v", p.Phases)
	}
}

func TestLoadAcceptsTitleAlias(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	doc := `{"title":"Legacy Title","workflow_type":"feature","phases":[]}`
	writeFile(t, path, doc)

	p, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Feature != "Legacy Title" {
		t.Fatalf("expected feature from title alias, got %q", p.Feature)
	}
}

func TestLoadUnknownWorkflowTypeFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	doc := `{"feature":"A","workflow_type":"bogus","phases":[]}`
	writeFile(t, path, doc)

	var warned bool
	p, err := Load(path, func(string, ...any) { warned = true })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.WorkflowType != WorkflowFeature {
		t.Fatalf("expected fallback to feature, got %q", p.WorkflowType)
	}
	if !warned {
		t.Fatal("expected a warning to be logged for unknown workflow_type")
	}
}

func TestLoadUnknownPhaseTypeIsHardError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	doc := `{"feature":"A","workflow_type":"feature","phases":[{"phase":1,"name":"P1","type":"bogus","subtasks":[]}]}`
	writeFile(t, path, doc)

	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected hard error for unknown phase type")
	}
}

func TestLoadUnknownSubtaskStatusIsHardError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	doc := `{"feature":"A","workflow_type":"feature","phases":[{"phase":1,"name":"P1","subtasks":[{"id":"t1","status":"bogus"}]}]}`
	writeFile(t, path, doc)

	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected hard error for unknown subtask status")
	}
}

func TestLoadMissingSubtaskStatusDefaultsPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	doc := `{"feature":"A","workflow_type":"feature","phases":[{"phase":1,"name":"P1","subtasks":[{"id":"t1"}]}]}`
	writeFile(t, path, doc)

	p, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Phases[0].Subtasks[0].Status != StatusPending {
		t.Fatalf("expected default status pending, got %q", p.Phases[0].Subtasks[0].Status)
	}
}

func TestPhaseNumberDefaultsPositional(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	doc := `{"feature":"A","workflow_type":"feature","phases":[{"name":"P1","subtasks":[]},{"name":"P2","subtasks":[]}]}`
	writeFile(t, path, doc)

	p, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Phases[0].Number != 1 || p.Phases[1].Number != 2 {
		t.Fatalf("expected positional phase numbers 1,2, got %d,%d", p.Phases[0].Number, p.Phases[1].Number)
	}
}

func TestSaveRoundTripIsAtomicAndStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	p := samplePlan()
	if err := p.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Feature != p.Feature || len(got.Phases) != len(p.Phases) {
		t.Fatalf("round-trip mismatch: %+v vs %+v", got, p)
	}
	// Round trip again: a second save/load should be stable up to UpdatedAt.
	got.UpdatedAt = p.UpdatedAt
	if err := got.Save(path); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got2, err := Load(path, nil)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if got2.Feature != got.Feature || got2.Status != got.Status {
		t.Fatalf("second round trip mismatch: %+v vs %+v", got2, got)
	}
}

func TestEmptyPhaseIsComplete(t *testing.T) {
	p := &Phase{Number: 1, Subtasks: nil}
	if !p.IsComplete() {
		t.Fatal("expected empty phase to be vacuously complete")
	}
}

func TestZeroPhasePlanBoundary(t *testing.T) {
	p := &ImplementationPlan{Feature: "A", WorkflowType: WorkflowFeature}
	if p.Progress().IsComplete {
		t.Fatal("expected a plan with zero subtasks to not report is_complete")
	}
	if _, _, ok := p.NextSubtask(); ok {
		t.Fatal("expected no next subtask on an empty plan")
	}
	p.deriveStatus()
	if p.Status != SurfaceBacklog || p.PlanStatus != PlanPending {
		t.Fatalf("expected backlog/pending on empty plan, got %s/%s", p.Status, p.PlanStatus)
	}
}

func TestSelfDependentPhaseNeverAvailable(t *testing.T) {
	p := &ImplementationPlan{
		Phases: []*Phase{
			{Number: 1, DependsOn: []int{1}, Subtasks: []*Subtask{{ID: "t1", Status: StatusPending}}},
		},
	}
	if avail := p.AvailablePhases(); len(avail) != 0 {
		t.Fatalf("expected self-dependent phase to never be available, got %+v", avail)
	}
}

func TestProgressInvariant(t *testing.T) {
	p := samplePlan()
	p.Phases[0].Subtasks = append(p.Phases[0].Subtasks,
		&Subtask{ID: "t2", Status: StatusCompleted},
		&Subtask{ID: "t3", Status: StatusFailed},
		&Subtask{ID: "t4", Status: StatusBlocked},
		&Subtask{ID: "t5", Status: StatusInProgress},
	)
	prog := p.Progress()
	other := prog.TotalSubtasks - prog.CompletedSubtasks - prog.FailedSubtasks
	if other != 3 { // t1 pending, t4 blocked, t5 in_progress
		t.Fatalf("expected 3 non-completed non-failed subtasks, got %d", other)
	}
}

func TestSubtaskCompletedAtInvariant(t *testing.T) {
	s := &Subtask{ID: "t1", Status: StatusPending}
	if s.CompletedAt != nil {
		t.Fatal("expected nil CompletedAt before completion")
	}
	s.Start("sess-1")
	s.Complete("done")
	if s.CompletedAt == nil {
		t.Fatal("expected CompletedAt set after Complete")
	}
	s.Reset()
	if s.CompletedAt != nil || s.StartedAt != nil {
		t.Fatal("expected Reset to clear both timing fields")
	}
}

func TestResetForFollowupFiresWhenDone(t *testing.T) {
	p := samplePlan()
	p.Phases[0].Subtasks[0].Status = StatusCompleted
	p.Status = SurfaceDone
	p.QASignoff = &QASignoff{Approved: true}
	p.RecoveryNote = "stale note"

	if !p.ResetForFollowup() {
		t.Fatal("expected ResetForFollowup to fire")
	}
	if p.QASignoff != nil || p.RecoveryNote != "" {
		t.Fatal("expected qa_signoff and recovery_note cleared")
	}
	if p.Status != SurfaceInProgress || p.PlanStatus != PlanInProgress {
		t.Fatalf("expected in_progress/in_progress, got %s/%s", p.Status, p.PlanStatus)
	}
}

func TestResetForFollowupDoesNotFireMidBuild(t *testing.T) {
	p := samplePlan()
	p.Status = SurfaceInProgress
	if p.ResetForFollowup() {
		t.Fatal("expected ResetForFollowup not to fire with incomplete subtasks and non-terminal status")
	}
}

func TestAddFollowupPhaseDependsOnAllExisting(t *testing.T) {
	p := samplePlan()
	p.Phases = append(p.Phases, &Phase{Number: 2, Name: "P2"})
	p.Status = SurfaceDone

	np := p.AddFollowupPhase("Followup", []*Subtask{{ID: "f1", Status: StatusPending}}, "", false)
	if np.Number != 3 {
		t.Fatalf("expected new phase numbered 3, got %d", np.Number)
	}
	if len(np.DependsOn) != 2 {
		t.Fatalf("expected depends_on all 2 existing phases, got %v", np.DependsOn)
	}
	if p.Status != SurfaceInProgress || p.PlanStatus != PlanInProgress {
		t.Fatalf("expected plan status in_progress/in_progress, got %s/%s", p.Status, p.PlanStatus)
	}
	if p.QASignoff != nil {
		t.Fatal("expected qa_signoff cleared")
	}
}

func TestDeriveStatusHappyPathNoQA(t *testing.T) {
	p := samplePlan()
	p.Phases[0].Subtasks[0].Status = StatusCompleted
	p.deriveStatus()
	if p.Status != SurfaceAIReview || p.PlanStatus != PlanReview {
		t.Fatalf("expected ai_review/review without QA signoff, got %s/%s", p.Status, p.PlanStatus)
	}
}

func TestDeriveStatusHumanReviewWithQA(t *testing.T) {
	p := samplePlan()
	p.Phases[0].Subtasks[0].Status = StatusCompleted
	p.QASignoff = &QASignoff{Approved: true}
	p.deriveStatus()
	if p.Status != SurfaceHumanReview || p.PlanStatus != PlanReview {
		t.Fatalf("expected human_review/review with QA approval, got %s/%s", p.Status, p.PlanStatus)
	}
}

func TestNextSubtaskDeterministicOrder(t *testing.T) {
	p := &ImplementationPlan{
		Phases: []*Phase{
			{Number: 1, Subtasks: []*Subtask{{ID: "a", Status: StatusCompleted}, {ID: "b", Status: StatusPending}}},
			{Number: 2, DependsOn: []int{1}, Subtasks: []*Subtask{{ID: "c", Status: StatusPending}}},
		},
	}
	_, st, ok := p.NextSubtask()
	if !ok || st.ID != "b" {
		t.Fatalf("expected subtask b first, got %+v ok=%v", st, ok)
	}
}

func TestNextSubtaskSkipsBlocked(t *testing.T) {
	p := &ImplementationPlan{
		Phases: []*Phase{
			{Number: 1, Subtasks: []*Subtask{{ID: "a", Status: StatusBlocked}, {ID: "b", Status: StatusPending}}},
		},
	}
	_, st, ok := p.NextSubtask()
	if !ok || st.ID != "b" {
		t.Fatalf("expected blocked subtask skipped, got %+v ok=%v", st, ok)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
}
