// Package errs isolates the error taxonomy and string-pattern classification
// used across the build loop, following the spec's own guidance to keep
// pattern matching in one place rather than scattered across callers.
package errs

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is a taxonomy of error classes the coder loop and recovery manager
// branch on. Kinds are compared by value, never by string matching the
// message at the call site.
type Kind string

const (
	KindToolConcurrency            Kind = "tool_concurrency"
	KindRateLimit                  Kind = "rate_limit"
	KindAuthentication              Kind = "authentication"
	KindStructuredOutputValidation Kind = "structured_output_validation_failed"
	KindRepeatedResponseLoop       Kind = "repeated_response_loop"
	KindCircuitBreaker             Kind = "circuit_breaker"
	KindMergeConflict              Kind = "merge_conflict"
	KindBranchNamespaceConflict    Kind = "branch_namespace_conflict"
	KindWorktreeStale              Kind = "worktree_stale"
	KindGitTransient               Kind = "git_transient"
	KindForgeHTTP5xx               Kind = "forge_http_5xx"
	KindExecutableNotFound         Kind = "executable_not_found"
	KindMemoryProviderUnavailable  Kind = "memory_provider_unavailable"
	KindMalformedPlan              Kind = "malformed_plan"
	KindOther                      Kind = "other"
)

// StructuredError carries a classified error across package boundaries so
// callers branch on Kind instead of matching message substrings again.
type StructuredError struct {
	Kind          Kind
	Message       string
	ExceptionType string
}

func (e *StructuredError) Error() string {
	if e.ExceptionType != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.ExceptionType)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds a StructuredError, sanitizing the message first.
func New(kind Kind, message string, exceptionType string) *StructuredError {
	return &StructuredError{Kind: kind, Message: Sanitize(message), ExceptionType: exceptionType}
}

var (
	reAPIKey     = regexp.MustCompile(`sk-[A-Za-z0-9._-]{20,}`)
	reKeyPrefix  = regexp.MustCompile(`key-[A-Za-z0-9._-]{20,}`)
	reBearer     = regexp.MustCompile(`Bearer [A-Za-z0-9._-]{20,}`)
	reTokenKV    = regexp.MustCompile(`(?i)token[=:]\s*[A-Za-z0-9._-]{20,}`)
	reSecretKV   = regexp.MustCompile(`(?i)secret[=:]\s*[A-Za-z0-9._-]{20,}`)
)

const maxSanitizedLen = 500

// Sanitize redacts credential-shaped substrings and truncates to 500 chars.
// It is idempotent: running it twice on its own output is a no-op, since the
// redaction sentinels themselves never match the secret-shaped patterns.
func Sanitize(s string) string {
	s = reAPIKey.ReplaceAllString(s, "[REDACTED_API_KEY]")
	s = reKeyPrefix.ReplaceAllString(s, "[REDACTED_API_KEY]")
	s = reBearer.ReplaceAllString(s, "Bearer [REDACTED_TOKEN]")
	s = reTokenKV.ReplaceAllString(s, "token=[REDACTED_TOKEN]")
	s = reSecretKV.ReplaceAllString(s, "secret=[REDACTED_SECRET]")

	if len(s) > maxSanitizedLen {
		s = s[:maxSanitizedLen] + "..."
	}
	return s
}

var (
	reNetworkish = regexp.MustCompile(`(?i)connection|network|timeout|reset|refused`)
	reHTTP5xx    = regexp.MustCompile(`\b5\d{2}\b`)
	reConcurrent = regexp.MustCompile(`(?i)concurren|simultaneous|too many requests in flight`)
)

// IsRetryableNetworkError matches the spec's §4.3.7 predicate for push/fetch
// retries: connection|network|timeout|reset|refused, case-insensitive.
func IsRetryableNetworkError(msg string) bool {
	return reNetworkish.MatchString(msg)
}

// IsRetryableHTTPError matches the spec's ForgeHTTP5xx class: a 5xx status
// code, or any message mentioning a timeout.
func IsRetryableHTTPError(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "timeout") {
		return true
	}
	return reHTTP5xx.MatchString(msg)
}

// IsAuthError reports whether msg matches 401/403-shaped authentication
// failures. These are explicitly excluded from retry per §4.3.7.
func IsAuthError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "authentication")
}

// IsClientError reports whether msg matches 404/422-shaped client errors,
// which are also excluded from retry.
func IsClientError(msg string) bool {
	return strings.Contains(msg, "404") || strings.Contains(msg, "422")
}

// IsToolConcurrencyPattern matches the §4.5 "400" + "tool" + concurrency
// wording heuristic used to flag a recoverable tool-concurrency error in
// agent stream text.
func IsToolConcurrencyPattern(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(text, "400") && strings.Contains(lower, "tool") && reConcurrent.MatchString(text)
}

var reAuthPattern = regexp.MustCompile(`(?i)authentication[_ ]?error|invalid api key|please run /login|unauthorized|token expired`)

// IsAuthPattern matches the §4.5 short-text (≤300 char) authentication
// error heuristic scanned over streamed text blocks.
func IsAuthPattern(text string) bool {
	if len(text) > 300 {
		return false
	}
	return reAuthPattern.MatchString(text)
}

// IsTransient is the recovery manager's "error looks transient (test flake,
// network)" predicate from §4.4.
func IsTransient(msg string) bool {
	lower := strings.ToLower(msg)
	for _, pat := range []string{"flake", "flaky", "timed out", "timeout", "connection", "network", "reset", "refused", "temporarily unavailable"} {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

var reRateLimit = regexp.MustCompile(`(?i)rate.?limit|429|too many requests`)

// IsRateLimitPattern matches the §4.5/§4.6 rate-limit error class that
// pauses the workflow rather than retrying immediately.
func IsRateLimitPattern(msg string) bool {
	return reRateLimit.MatchString(msg)
}

// SuggestsBrokenState is the recovery manager's predicate for "the error
// pattern suggests broken state" (§4.4), triggering a rollback instead of a
// plain retry when a good commit is available.
func SuggestsBrokenState(msg string) bool {
	lower := strings.ToLower(msg)
	for _, pat := range []string{"compile", "build fail", "syntax error", "undefined", "cannot find", "import cycle", "panic:"} {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}
