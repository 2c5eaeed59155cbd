package agentclient

import (
	"fmt"
	"strings"

	"github.com/autobuild/autobuild/internal/plan"
)

// PromptBuilder renders a coder.PromptBuilder prompt from a subtask,
// following the same section layout as the teacher's per-task executor
// prompt (task ID/title, description, file boundaries, then a closing
// completion instruction).
type PromptBuilder struct{}

// BuildPrompt implements coder.PromptBuilder.
func (PromptBuilder) BuildPrompt(p *plan.ImplementationPlan, ph *plan.Phase, st *plan.Subtask) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are implementing one subtask of %q.\n\n", p.Feature)
	fmt.Fprintf(&sb, "Phase %d: %s\n", ph.Number, ph.Name)
	fmt.Fprintf(&sb, "Subtask ID: %s\n", st.ID)

	if st.Description != "" {
		sb.WriteString("\nDescription:\n")
		sb.WriteString(st.Description)
		sb.WriteString("\n")
	}

	if len(st.FilesToModify) > 0 || len(st.FilesToCreate) > 0 {
		sb.WriteString("\n## File boundaries\n\n")
		for _, f := range st.FilesToCreate {
			fmt.Fprintf(&sb, "- create `%s`\n", f)
		}
		for _, f := range st.FilesToModify {
			fmt.Fprintf(&sb, "- modify `%s`\n", f)
		}
		sb.WriteString("\nStay within these files unless the subtask cannot be completed otherwise.\n")
	}

	if len(st.PatternsFrom) > 0 {
		sb.WriteString("\n## Follow the conventions already used in\n\n")
		for _, f := range st.PatternsFrom {
			fmt.Fprintf(&sb, "- `%s`\n", f)
		}
	}

	if st.Verification != nil && st.Verification.Run != "" {
		fmt.Fprintf(&sb, "\nVerify your work with: `%s`\n", st.Verification.Run)
	}
	if st.ExpectedOutput != "" {
		fmt.Fprintf(&sb, "\nExpected outcome: %s\n", st.ExpectedOutput)
	}

	sb.WriteString("\nWhen finished, summarize what changed.\n")

	return sb.String(), nil
}
