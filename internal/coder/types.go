// Package coder implements §4.6: the build loop that drives an
// implementation plan's subtasks through agent sessions, with
// concurrency-retry backoff, pause-file cooperation, and post-session
// recovery/memory hooks.
package coder

import (
	"time"

	"github.com/autobuild/autobuild/internal/plan"
	"github.com/autobuild/autobuild/internal/session"
)

// MaxConcurrencyRetries and the backoff schedule are the §4.6 constants:
// 2, 4, 8, 16, 32 seconds.
const (
	MaxConcurrencyRetries = 5
	InitialRetryDelay     = 2 * time.Second
	MaxRetryDelay         = 32 * time.Second
)

// AutoContinueDelay is the default pause between loop turns when no pause
// file is present.
const AutoContinueDelay = 3 * time.Second

// §6.3 pause-ceiling constants.
const (
	MaxRateLimitWait      = 2 * time.Hour
	RateLimitPollInterval = 30 * time.Second
	MaxAuthWait           = 24 * time.Hour
	AuthPollInterval      = 10 * time.Second
)

// PromptBuilder is the narrow, out-of-scope-implementation contract for
// turning a subtask into a submittable prompt string.
type PromptBuilder interface {
	BuildPrompt(p *plan.ImplementationPlan, ph *plan.Phase, st *plan.Subtask) (string, error)
}

// Insight is one piece of extracted knowledge about a session's outcome.
type Insight struct {
	SubtaskID string
	Summary   string
	Success   bool
	Tags      []string
}

// InsightExtractor is the narrow contract for turning a session result
// into insights worth remembering.
type InsightExtractor interface {
	Extract(subtaskID string, result *session.Result) ([]Insight, error)
}

// MemoryStore is the narrow, out-of-scope-schema contract for persisting
// insights (§1's "embedded semantic-memory store" boundary).
type MemoryStore interface {
	Save(insight Insight) error
}

// EventSink receives lifecycle notifications (e.g. Linear ticket updates);
// a nil sink is always safe to call through via NopEventSink.
type EventSink interface {
	Emit(kind, subtaskID, detail string) error
}

// NopEventSink discards every event; used when no sink is configured.
type NopEventSink struct{}

func (NopEventSink) Emit(string, string, string) error { return nil }

// NopInsightExtractor yields no insights; used when none is configured.
type NopInsightExtractor struct{}

func (NopInsightExtractor) Extract(string, *session.Result) ([]Insight, error) { return nil, nil }

// NopMemoryStore discards every insight; used when no store is configured.
type NopMemoryStore struct{}

func (NopMemoryStore) Save(Insight) error { return nil }
