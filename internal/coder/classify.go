package coder

import (
	"github.com/autobuild/autobuild/internal/errs"
	"github.com/autobuild/autobuild/internal/session"
)

// Outcome buckets a session.Result into the branch the build loop takes
// next, separating pure control flow from the interface wiring in loop.go.
type Outcome string

const (
	OutcomeComplete    Outcome = "complete"
	OutcomeConcurrency Outcome = "concurrency"
	OutcomeRateLimit   Outcome = "rate_limit"
	OutcomeAuth        Outcome = "auth"
	OutcomeFailed      Outcome = "failed"
)

// classify maps a session result onto an Outcome. A successful run is
// always OutcomeComplete; anything else is classified off the error Kind
// session.Run already assigned, falling back to a rate-limit text scan
// for errors session doesn't tag explicitly (session has no direct
// rate-limit event; the coder loop reclassifies generic errors itself).
func classify(result *session.Result) Outcome {
	if result == nil {
		return OutcomeFailed
	}
	if result.Status == session.StatusComplete {
		return OutcomeComplete
	}
	if result.Error == nil {
		return OutcomeFailed
	}

	switch result.Error.Kind {
	case errs.KindToolConcurrency:
		return OutcomeConcurrency
	case errs.KindAuthentication:
		return OutcomeAuth
	}

	if errs.IsRateLimitPattern(result.Error.Message) {
		return OutcomeRateLimit
	}
	return OutcomeFailed
}

// errMessage extracts the sanitized error message from a result, or the
// empty string when there is none.
func errMessage(result *session.Result) string {
	if result == nil || result.Error == nil {
		return ""
	}
	return result.Error.Message
}
