// Package agentclient is the default session.AgentClient: an
// anthropic-sdk-go conversation loop (direct API or AWS Bedrock), adapted
// from internal/api's ClaudeAPI runner to emit session.Event over a
// channel instead of ClaudeAPI's subprocess-compatible Output()/Wait()
// pair. The tool schema and executor are reused unchanged from
// internal/api; only the event shape at the boundary changes.
package agentclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/autobuild/autobuild/internal/api"
	"github.com/autobuild/autobuild/internal/session"
)

// Config configures a Client. Leave UseAWSBedrock false and APIKey empty
// to read ANTHROPIC_API_KEY from the environment, matching api.NewClient.
type Config struct {
	Model         anthropic.Model
	APIKey        string
	UseAWSBedrock bool
	AWSRegion     string
	AWSProfile    string
	MaxIterations int
	Temperature   *float64
}

// Client is a session.AgentClient backed by the Anthropic Messages API.
type Client struct {
	inner         *api.Client
	maxIterations int
	temperature   *float64
}

var _ session.AgentClient = (*Client)(nil)

// New constructs a Client, wrapping api.NewClient's direct-API/Bedrock
// config resolution.
func New(cfg Config) (*Client, error) {
	inner, err := api.NewClient(api.ClientConfig{
		Model:         cfg.Model,
		APIKey:        cfg.APIKey,
		UseAWSBedrock: cfg.UseAWSBedrock,
		AWSRegion:     cfg.AWSRegion,
		AWSProfile:    cfg.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("construct anthropic client: %w", err)
	}
	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = 50
	}
	return &Client{inner: inner, maxIterations: maxIter, temperature: cfg.Temperature}, nil
}

// Submit drives one tool-calling conversation to completion, translating
// each Anthropic content block into a session.Event as it is produced.
func (c *Client) Submit(prompt, specDir string) (<-chan session.Event, <-chan error) {
	events := make(chan session.Event, 64)
	errCh := make(chan error, 1)

	go c.run(prompt, specDir, events, errCh)

	return events, errCh
}

func (c *Client) run(prompt, specDir string, events chan<- session.Event, errCh chan<- error) {
	defer close(events)
	defer close(errCh)

	ctx := context.Background()
	executor := api.NewToolExecutor(specDir)

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	for iteration := 0; iteration < c.maxIterations; iteration++ {
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
			return
		default:
		}

		params := anthropic.MessageNewParams{
			Model:     c.inner.Model(),
			MaxTokens: 8192,
			Messages:  messages,
			Tools:     api.ToolDefinitions(),
		}
		if c.temperature != nil {
			params.Temperature = anthropic.Float(*c.temperature)
		}

		resp, err := c.inner.Raw().Messages.New(ctx, params)
		if err != nil {
			errCh <- fmt.Errorf("anthropic API call: %w", err)
			return
		}
		c.inner.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

		var assistantBlocks, toolResultBlocks []anthropic.ContentBlockParamUnion
		var finalText string

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				finalText += variant.Text
				events <- session.Event{Kind: session.EventText, Text: variant.Text}
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				events <- session.Event{
					Kind:      session.EventToolUse,
					ToolID:    variant.ID,
					ToolName:  variant.Name,
					ToolInput: api.FormatToolAction(variant.Name, variant.Input),
				}

				result := executor.Execute(ctx, variant.Name, variant.Input)
				events <- session.Event{
					Kind:            session.EventToolResult,
					ToolResultForID: variant.ID,
					ToolResultOK:    !result.IsError,
					ToolResultText:  result.Content,
				}

				assistantBlocks = append(assistantBlocks, anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))
				toolResultBlocks = append(toolResultBlocks, anthropic.NewToolResultBlock(variant.ID, result.Content, result.IsError))
			}
		}

		if resp.StopReason == anthropic.StopReasonEndTurn {
			maybeEmitStructuredOutput(events, finalText)
			events <- session.Event{Kind: session.EventResult, ResultSubtype: "success"}
			return
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	errCh <- fmt.Errorf("max iterations (%d) reached without an end turn", c.maxIterations)
}

// maybeEmitStructuredOutput looks for a fenced ```json block in the
// model's final text and, if it parses, surfaces it as a
// session.EventStructuredOutput the way a schema-constrained tool result
// would. Prompts that don't ask for structured output simply produce no
// such block and nothing is emitted.
func maybeEmitStructuredOutput(events chan<- session.Event, text string) {
	start := indexFence(text)
	if start < 0 {
		return
	}
	var payload any
	if err := json.Unmarshal([]byte(text[start:]), &payload); err != nil {
		return
	}
	events <- session.Event{Kind: session.EventStructuredOutput, StructuredPayload: payload}
}

func indexFence(text string) int {
	const fence = "```json"
	for i := 0; i+len(fence) <= len(text); i++ {
		if text[i:i+len(fence)] == fence {
			j := i + len(fence)
			for j < len(text) && (text[j] == '\n' || text[j] == '\r') {
				j++
			}
			return j
		}
	}
	return -1
}
