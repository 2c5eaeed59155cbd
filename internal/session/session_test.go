package session

import (
	"testing"

	"github.com/autobuild/autobuild/internal/errs"
)

type fakeClient struct {
	events []Event
	err    error
}

func (f *fakeClient) Submit(prompt, specDir string) (<-chan Event, <-chan error) {
	events := make(chan Event, len(f.events))
	errCh := make(chan error, 1)
	for _, e := range f.events {
		events <- e
	}
	close(events)
	if f.err != nil {
		errCh <- f.err
	}
	close(errCh)
	return events, errCh
}

func TestRunHappyPathCompletes(t *testing.T) {
	client := &fakeClient{events: []Event{
		{Kind: EventThinking, ThinkingLength: 42},
		{Kind: EventToolUse, ToolID: "1", ToolName: "Read", ToolInput: "main.go"},
		{Kind: EventToolResult, ToolResultForID: "1", ToolResultOK: true, ToolResultText: "ok"},
		{Kind: EventText, Text: "Done with the change."},
	}}

	result := Run(client, "prompt", "/spec", nil)
	if result.Status != StatusComplete {
		t.Fatalf("expected complete, got %s (err=%v)", result.Status, result.Error)
	}
	if result.ResponseText != "Done with the change." {
		t.Fatalf("unexpected response text: %q", result.ResponseText)
	}
}

func TestRunDetectsAuthPattern(t *testing.T) {
	client := &fakeClient{events: []Event{
		{Kind: EventText, Text: "authentication_error: please run /login"},
	}}

	result := Run(client, "prompt", "/spec", nil)
	if result.Status != StatusError || result.Error.Kind != errs.KindAuthentication {
		t.Fatalf("expected auth error, got %+v", result)
	}
}

func TestRunDetectsRepeatedResponseLoop(t *testing.T) {
	client := &fakeClient{events: []Event{
		{Kind: EventText, Text: "Trying the same fix again."},
		{Kind: EventText, Text: "Trying the same fix again."},
	}}

	result := Run(client, "prompt", "/spec", nil)
	if result.Status != StatusError || result.Error.Kind != errs.KindRepeatedResponseLoop {
		t.Fatalf("expected repeated-response loop error, got %+v", result)
	}
}

func TestRunDetectsToolConcurrencyPattern(t *testing.T) {
	client := &fakeClient{events: []Event{
		{Kind: EventText, Text: "Error 400: tool concurrency limit - too many requests in flight"},
	}}

	result := Run(client, "prompt", "/spec", nil)
	if result.Status != StatusError || result.Error.Kind != errs.KindToolConcurrency {
		t.Fatalf("expected tool concurrency error, got %+v", result)
	}
}

func TestRunStructuredOutputCapturedOnce(t *testing.T) {
	client := &fakeClient{events: []Event{
		{Kind: EventStructuredOutput, StructuredPayload: map[string]any{"a": 1}},
		{Kind: EventStructuredOutput, StructuredPayload: map[string]any{"a": 2}},
	}}

	result := Run(client, "prompt", "/spec", nil)
	payload, ok := result.StructuredOutput.(map[string]any)
	if !ok || payload["a"] != 1 {
		t.Fatalf("expected first structured payload retained, got %+v", result.StructuredOutput)
	}
}

func TestRunStructuredOutputRetriesExceeded(t *testing.T) {
	client := &fakeClient{events: []Event{
		{Kind: EventResult, ResultSubtype: "error_max_structured_output_retries"},
	}}

	result := Run(client, "prompt", "/spec", nil)
	if result.Status != StatusError || result.Error.Kind != errs.KindStructuredOutputValidation {
		t.Fatalf("expected structured output validation error, got %+v", result)
	}
}

func TestRunMessageCountCircuitBreaker(t *testing.T) {
	events := make([]Event, MaxMessagesPerTurn+1)
	for i := range events {
		events[i] = Event{Kind: EventThinking, ThinkingLength: 1}
	}
	client := &fakeClient{events: events}

	result := Run(client, "prompt", "/spec", nil)
	if result.Status != StatusError || result.Error.Kind != errs.KindCircuitBreaker {
		t.Fatalf("expected circuit breaker error, got %+v", result)
	}
}

func TestRunBrokenPipeIsTerminal(t *testing.T) {
	client := &fakeClient{err: errBrokenPipe{}}

	result := Run(client, "prompt", "/spec", nil)
	if result.Status != StatusError {
		t.Fatalf("expected error status, got %+v", result)
	}
}

type errBrokenPipe struct{}

func (errBrokenPipe) Error() string { return "write: broken pipe" }
