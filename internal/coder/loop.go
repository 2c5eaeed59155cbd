package coder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/autobuild/autobuild/internal/gitrun"
	"github.com/autobuild/autobuild/internal/pausewatch"
	"github.com/autobuild/autobuild/internal/plan"
	"github.com/autobuild/autobuild/internal/recovery"
	"github.com/autobuild/autobuild/internal/session"
)

// Deps bundles every collaborator the build loop needs. The narrow
// out-of-scope interfaces (PromptBuilder is required; InsightExtractor,
// MemoryStore, EventSink fall back to their Nop* implementations when
// left nil).
type Deps struct {
	SpecDir  string
	PlanPath string

	Git      *gitrun.ExecRunner
	Client   session.AgentClient
	Prompts  PromptBuilder
	Recovery *recovery.Manager

	Insights InsightExtractor
	Memory   MemoryStore
	Events   EventSink

	Logf session.Logf

	// Stop, if non-nil, aborts the loop (and any in-progress wait) between
	// atomic steps. A nil Stop never fires.
	Stop <-chan struct{}

	// Sleep overrides the backoff/auto-continue wait, defaulting to a real
	// timer (sleepOrStop). Tests inject an instant, duration-recording stub
	// so the concurrency-retry schedule doesn't actually take 2m of wall
	// clock to exercise.
	Sleep func(d time.Duration, stop <-chan struct{})
}

func (d *Deps) sleep(dur time.Duration) {
	fn := d.Sleep
	if fn == nil {
		fn = sleepOrStop
	}
	fn(dur, d.Stop)
}

func (d *Deps) insights() InsightExtractor {
	if d.Insights == nil {
		return NopInsightExtractor{}
	}
	return d.Insights
}

func (d *Deps) memory() MemoryStore {
	if d.Memory == nil {
		return NopMemoryStore{}
	}
	return d.Memory
}

func (d *Deps) events() EventSink {
	if d.Events == nil {
		return NopEventSink{}
	}
	return d.Events
}

// Summary reports what one Run call accomplished across however many
// subtasks it drove before the plan completed, every remaining subtask
// went stuck, or Stop fired.
type Summary struct {
	Completed int
	Failed    int
	Stuck     int
}

// Run drives the §4.6 build loop: load plan, pick next subtask, run one
// agent session (with concurrency-retry backoff and pause-file
// cooperation), reconcile the result against the plan and recovery
// ledgers, then repeat.
func Run(d *Deps) (*Summary, error) {
	summary := &Summary{}

	for {
		if stopped(d.Stop) {
			return summary, nil
		}

		done, err := d.processNext(summary)
		if err != nil {
			return summary, err
		}
		if done {
			return summary, nil
		}

		if stopped(d.Stop) {
			return summary, nil
		}
		d.sleep(AutoContinueDelay)
	}
}

// processNext drives exactly one subtask through steps 2-6 of the §4.6
// loop, updating summary in place. done is true when the plan currently
// has no eligible subtask to process (complete, or everything remaining
// is blocked/stuck).
func (d *Deps) processNext(summary *Summary) (done bool, err error) {
	p, err := plan.Load(d.PlanPath, logAdapter(d.Logf))
	if err != nil {
		return false, fmt.Errorf("load plan: %w", err)
	}

	ph, st, ok := p.NextSubtask()
	if !ok {
		return true, nil
	}

	if d.Recovery.IsStuck(st.ID) {
		st.Status = plan.StatusBlocked
		if err := p.Save(d.PlanPath); err != nil {
			return false, fmt.Errorf("save plan after skipping stuck subtask %s: %w", st.ID, err)
		}
		return false, nil
	}

	pausewatch.WaitWhilePaused(d.SpecDir, d.Stop)
	if stopped(d.Stop) {
		return true, nil
	}

	sessionID := fmt.Sprintf("%s-%s", st.ID, uuid.NewString())
	st.Start(sessionID)
	if err := p.Save(d.PlanPath); err != nil {
		return false, fmt.Errorf("save plan after starting subtask %s: %w", st.ID, err)
	}

	prompt, err := d.Prompts.BuildPrompt(p, ph, st)
	if err != nil {
		return false, fmt.Errorf("build prompt for subtask %s: %w", st.ID, err)
	}

	result := d.runWithRetry(prompt, sessionID)

	if err := d.handleOutcome(p, st, sessionID, result); err != nil {
		return false, err
	}

	switch st.Status {
	case plan.StatusCompleted:
		summary.Completed++
	case plan.StatusFailed:
		summary.Failed++
	}
	if d.Recovery.IsStuck(st.ID) {
		summary.Stuck++
	}

	if err := p.Save(d.PlanPath); err != nil {
		return false, fmt.Errorf("save plan after subtask %s: %w", st.ID, err)
	}
	return false, nil
}

// runWithRetry runs one subtask's session, absorbing §4.5/§4.6's three
// recoverable error classes before handing the final result back to the
// loop: tool-concurrency retries with exponential backoff up to
// MaxConcurrencyRetries, while rate-limit and auth errors pause the whole
// loop via a marker file rather than retrying on a timer.
func (d *Deps) runWithRetry(prompt, sessionID string) *session.Result {
	concurrencyAttempts := 0

	for {
		result := session.Run(d.Client, prompt, d.SpecDir, d.Logf)

		switch classify(result) {
		case OutcomeConcurrency:
			concurrencyAttempts++
			if concurrencyAttempts >= MaxConcurrencyRetries {
				return result
			}
			d.sleep(concurrencyBackoff(concurrencyAttempts))

		case OutcomeRateLimit:
			if err := pausewatch.Create(d.SpecDir, pausewatch.RateLimitPause); err != nil {
				return errorResult(result, fmt.Sprintf("create rate-limit pause marker: %v", err))
			}
			resumed, err := pausewatch.WaitForResume(d.SpecDir, pausewatch.RateLimitPause, RateLimitPollInterval, MaxRateLimitWait, d.Stop)
			if err != nil {
				return errorResult(result, fmt.Sprintf("wait for rate-limit resume: %v", err))
			}
			if !resumed {
				return result
			}

		case OutcomeAuth:
			if err := pausewatch.Create(d.SpecDir, pausewatch.AuthPause); err != nil {
				return errorResult(result, fmt.Sprintf("create auth pause marker: %v", err))
			}
			resumed, err := pausewatch.WaitForResume(d.SpecDir, pausewatch.AuthPause, AuthPollInterval, MaxAuthWait, d.Stop)
			if err != nil {
				return errorResult(result, fmt.Sprintf("wait for auth resume: %v", err))
			}
			if !resumed {
				return result
			}

		default:
			return result
		}

		if stopped(d.Stop) {
			return result
		}
	}
}

func errorResult(prev *session.Result, msg string) *session.Result {
	responseText := ""
	if prev != nil {
		responseText = prev.ResponseText
	}
	return &session.Result{
		Status:       session.StatusError,
		ResponseText: responseText,
		Error:        &session.ErrorInfo{Message: msg},
	}
}

// handleOutcome reconciles a finished session against the plan subtask and
// the recovery ledgers, per the §4.6 step 6 branch table.
func (d *Deps) handleOutcome(p *plan.ImplementationPlan, st *plan.Subtask, sessionID string, result *session.Result) error {
	insights, _ := d.insights().Extract(st.ID, result)
	for _, ins := range insights {
		if err := d.memory().Save(ins); err != nil {
			return fmt.Errorf("save insight for subtask %s: %w", st.ID, err)
		}
	}

	switch classify(result) {
	case OutcomeComplete:
		st.Complete(result.ResponseText)
		if err := d.Recovery.RecordAttempt(st.ID, sessionID, true, result.ResponseText, ""); err != nil {
			return fmt.Errorf("record attempt for subtask %s: %w", st.ID, err)
		}
		if sha, err := d.Git.HeadSHA(); err == nil {
			if err := d.Recovery.RecordGoodCommit(sha, st.ID); err != nil {
				return fmt.Errorf("record good commit for subtask %s: %w", st.ID, err)
			}
		}
		return d.events().Emit("completed", st.ID, "")

	case OutcomeConcurrency:
		// Concurrency retries were exhausted inside runWithRetry; the
		// subtask goes back to pending for the next turn rather than
		// being marked failed outright.
		if err := d.Recovery.RecordAttempt(st.ID, sessionID, false, "", errMessage(result)); err != nil {
			return fmt.Errorf("record attempt for subtask %s: %w", st.ID, err)
		}
		st.Reset()
		return d.events().Emit("retry", st.ID, "tool concurrency retries exhausted")

	default:
		errMsg := errMessage(result)
		if err := d.Recovery.RecordAttempt(st.ID, sessionID, false, "", errMsg); err != nil {
			return fmt.Errorf("record attempt for subtask %s: %w", st.ID, err)
		}
		st.Fail(errMsg)

		latestSHA, _ := d.Git.HeadSHA()
		action := d.Recovery.CheckAndRecover(st.ID, latestSHA, errMsg)
		if err := recovery.Execute(d.Recovery, d.Git, p, st.ID, action); err != nil {
			return fmt.Errorf("execute recovery action for subtask %s: %w", st.ID, err)
		}
		return d.events().Emit("failed", st.ID, errMsg)
	}
}
