package recovery

import (
	"fmt"
	"log"

	"github.com/autobuild/autobuild/internal/gitrun"
	"github.com/autobuild/autobuild/internal/plan"
)

// Execute carries out a RecoveryAction against the project git repo and
// the in-memory plan, per §4.4's execution rules:
//   - rollback(sha): log the 8-char target prefix, then git reset --hard.
//   - retry: reset_subtask — the subtask returns to pending, timestamps
//     cleared, no further ledger mutation.
//   - skip / escalate: mark_subtask_stuck; the caller is responsible for
//     no longer offering this subtask via plan.NextSubtask.
func Execute(m *Manager, git *gitrun.ExecRunner, p *plan.ImplementationPlan, subtaskID string, action *Action) error {
	switch action.Kind {
	case ActionRollback:
		log.Printf("[recovery] subtask %s: rolling back to %s", subtaskID, ShortSHA(action.Target))
		if _, err := m.RollbackToCommit(git, action.Target); err != nil {
			return err
		}
		return nil

	case ActionRetry:
		_, st, ok := p.FindSubtask(subtaskID)
		if !ok {
			return fmt.Errorf("reset subtask %s: not found in plan", subtaskID)
		}
		st.Reset()
		return nil

	case ActionSkip, ActionEscalate:
		return m.MarkSubtaskStuck(subtaskID, action.Reason)

	default:
		return fmt.Errorf("unknown recovery action kind %q", action.Kind)
	}
}
