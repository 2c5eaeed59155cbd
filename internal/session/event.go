// Package session implements §4.5: one agent turn, consumed as a lazy
// sequence of typed events, with sanitized error classification and the
// circuit breakers that stop a runaway turn.
package session

// EventKind enumerates the agent-stream event types the runner handles.
type EventKind string

const (
	EventThinking          EventKind = "thinking"
	EventText              EventKind = "text"
	EventToolUse           EventKind = "tool_use"
	EventToolResult        EventKind = "tool_result"
	EventStructuredOutput  EventKind = "structured_output"
	EventResult            EventKind = "result"
)

// Event is one item in the lazy sequence an AgentClient turn produces.
// Only the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// Thinking
	ThinkingLength int

	// Text
	Text string

	// ToolUse
	ToolID    string
	ToolName  string
	ToolInput string // a short, kind-specific detail (file basename, command head, pattern)

	// ToolResult
	ToolResultForID string
	ToolResultOK    bool
	ToolResultText  string
	ToolBlocked     bool

	// StructuredOutput
	StructuredPayload any

	// Result
	ResultSubtype string
}

// AgentClient is the narrow, out-of-scope-implementation contract the
// session runner depends on: given a prompt and a working directory, it
// produces a lazy sequence of Events for one submission. The concrete
// client (Anthropic API / Bedrock / subprocess CLI) lives outside this
// package's responsibility — session only consumes the channel contract.
type AgentClient interface {
	// Submit starts one turn and returns a channel of Events, closed when
	// the turn ends (successfully or not). The returned error channel
	// carries at most one terminal transport error (e.g. broken pipe).
	Submit(prompt, specDir string) (<-chan Event, <-chan error)
}
