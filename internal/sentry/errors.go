package sentry

import "fmt"

// Policy violation reasons.
const (
	PolicyRateLimited          = "rate_limit_exceeded"
	PolicyForbiddenContentType = "forbidden_content_type"
	PolicyRobotsDisallowed     = "robots_disallowed"
	PolicyBlockedHost          = "blocked_host"
)

// FetchError reports a network or HTTP-level fetch failure. StatusCode is 0
// when the failure happened before a response arrived.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PolicyViolation reports a fetch refused by the safety policy before or
// during the request.
type PolicyViolation struct {
	URL    string
	Reason string
	Detail string
}

func (e *PolicyViolation) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("policy violation for %s: %s (%s)", e.URL, e.Reason, e.Detail)
	}
	return fmt.Sprintf("policy violation for %s: %s", e.URL, e.Reason)
}

// ParseError reports unusable page content.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps a failure in a persistence backend. Op names the store
// operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RuleEvaluationError reports a subscription rule that could not be
// evaluated against an event.
type RuleEvaluationError struct {
	SubscriptionID string
	Err            error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("evaluate rule for subscription %s: %v", e.SubscriptionID, e.Err)
}

func (e *RuleEvaluationError) Unwrap() error { return e.Err }
