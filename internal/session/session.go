package session

import (
	"strings"

	"github.com/autobuild/autobuild/internal/errs"
)

// Status is the terminal state of one Run call.
type Status string

const (
	StatusContinue Status = "continue"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// MaxMessagesPerTurn is the §4.5 circuit breaker default.
const MaxMessagesPerTurn = 500

// RepeatedResponseThreshold is the number of consecutive identical text
// blocks that trips the loop-detection breaker.
const RepeatedResponseThreshold = 1

// debugPreviewLen is how much of a Thinking block's text is kept for an
// optional debug preview.
const debugPreviewLen = 200

// ErrorInfo is the sanitized, classified error returned alongside a
// terminal Status.
type ErrorInfo struct {
	Kind    errs.Kind
	Message string
}

// Result is what Run returns for one submission.
type Result struct {
	Status       Status
	ResponseText string
	Error        *ErrorInfo

	// StructuredOutput is set iff a StructuredOutput event was observed.
	StructuredOutput any
}

// Logf is a printf-style logger; nil disables turn-level logging.
type Logf func(format string, args ...any)

// Run consumes one AgentClient submission end to end, implementing the
// §4.5 event-handling table and circuit breakers.
func Run(client AgentClient, prompt, specDir string, logf Logf) *Result {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	events, errCh := client.Submit(prompt, specDir)

	var (
		responseText     strings.Builder
		lastTextBlock    string
		repeatCount      int
		structuredCapture any
		structuredSeen   bool
		pendingTools     = make(map[string]string) // tool id -> tool name
		messageCount     int
	)

	for ev := range events {
		messageCount++
		if messageCount > MaxMessagesPerTurn {
			return &Result{
				Status: StatusError,
				Error:  &ErrorInfo{Kind: errs.KindCircuitBreaker, Message: errs.Sanitize("message count exceeded MaxMessagesPerTurn, possible retry loop")},
				ResponseText: responseText.String(),
			}
		}

		switch ev.Kind {
		case EventThinking:
			if len(ev.Text) > 0 {
				logf("[thinking] %d chars: %s", ev.ThinkingLength, truncatePreview(ev.Text, debugPreviewLen))
			} else {
				logf("[thinking] %d chars", ev.ThinkingLength)
			}

		case EventText:
			responseText.WriteString(ev.Text)
			logf("[text] %s", ev.Text)

			if len(ev.Text) <= 300 && errs.IsAuthPattern(ev.Text) {
				return &Result{
					Status:       StatusError,
					ResponseText: responseText.String(),
					Error:        &ErrorInfo{Kind: errs.KindAuthentication, Message: errs.Sanitize(ev.Text)},
				}
			}

			if ev.Text != "" && ev.Text == lastTextBlock {
				repeatCount++
				if repeatCount >= RepeatedResponseThreshold {
					return &Result{
						Status:       StatusError,
						ResponseText: responseText.String(),
						Error:        &ErrorInfo{Kind: errs.KindRepeatedResponseLoop, Message: "repeated identical response block"},
					}
				}
			} else {
				repeatCount = 0
			}
			lastTextBlock = ev.Text

			if errs.IsToolConcurrencyPattern(ev.Text) {
				return &Result{
					Status:       StatusError,
					ResponseText: responseText.String(),
					Error:        &ErrorInfo{Kind: errs.KindToolConcurrency, Message: errs.Sanitize(ev.Text)},
				}
			}

		case EventToolUse:
			pendingTools[ev.ToolID] = ev.ToolName
			logf("[tool_use] %s: %s", ev.ToolName, ev.ToolInput)

		case EventToolResult:
			name := pendingTools[ev.ToolResultForID]
			if ev.ToolBlocked {
				logf("[tool_result] %s BLOCKED: %s", name, ev.ToolResultText)
			} else if ev.ToolResultOK {
				logf("[tool_result] %s ok: %s", name, truncatePreview(ev.ToolResultText, debugPreviewLen))
			} else {
				logf("[tool_result] %s error: %s", name, truncatePreview(ev.ToolResultText, debugPreviewLen))
			}

		case EventStructuredOutput:
			if !structuredSeen {
				structuredCapture = ev.StructuredPayload
				structuredSeen = true
			}

		case EventResult:
			if ev.ResultSubtype == "error_max_structured_output_retries" {
				return &Result{
					Status:            StatusError,
					ResponseText:      responseText.String(),
					StructuredOutput:  structuredCapture,
					Error:             &ErrorInfo{Kind: errs.KindStructuredOutputValidation, Message: "exceeded max structured output retries"},
				}
			}
		}
	}

	if err := drainErr(errCh); err != nil {
		if isBrokenPipe(err) {
			return &Result{
				Status:       StatusError,
				ResponseText: responseText.String(),
				Error:        &ErrorInfo{Kind: errs.KindOther, Message: "broken pipe: receive stream closed unexpectedly"},
			}
		}
		return &Result{
			Status:       StatusError,
			ResponseText: responseText.String(),
			Error:        &ErrorInfo{Kind: errs.KindOther, Message: errs.Sanitize(err.Error())},
		}
	}

	return &Result{
		Status:           StatusComplete,
		ResponseText:     responseText.String(),
		StructuredOutput: structuredCapture,
	}
}

func drainErr(errCh <-chan error) error {
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

func isBrokenPipe(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "broken pipe") ||
		strings.Contains(strings.ToLower(err.Error()), "pipe closed")
}

func truncatePreview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
