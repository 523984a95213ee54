// Package secerr defines the gateway's error taxonomy and the redaction
// boundary every error must cross before reaching logs or users.
//
// Terminal classes (ValidationError, PolicyViolation, ResourceLimitExceeded,
// RateLimited, IntegrityError) are never retried. TransportError is the only
// retriable class. Error messages name the violated rule but never echo the
// offending payload.
package secerr

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports malformed or dangerous input. Field names the
// input category; Rule names the check that failed. The raw value is
// deliberately not carried.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Rule)
}

// PolicyViolation reports a whitelist, domain, or command rejection.
type PolicyViolation struct {
	Rule string
}

func (e *PolicyViolation) Error() string {
	return "policy violation: " + e.Rule
}

// ResourceLimitExceeded reports a size or time cap being hit.
type ResourceLimitExceeded struct {
	Limit string // e.g. "output_bytes", "response_bytes", "timeout"
	Max   int64
}

func (e *ResourceLimitExceeded) Error() string {
	return fmt.Sprintf("resource limit exceeded: %s (max %d)", e.Limit, e.Max)
}

// RateLimited reports a sliding-window quota exhaustion with a retry hint.
type RateLimited struct {
	ID         string
	RetryAfter time.Duration
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter.Round(time.Millisecond))
}

// TransportError wraps a retriable network failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IntegrityError reports tampering: hash mismatch, decrypt failure, or a
// broken event chain.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "integrity failure: " + e.Reason
}

// Retriable reports whether the error is safe to retry. Only transport
// failures qualify; everything else in the taxonomy is terminal.
func Retriable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Terminal reports whether the error belongs to one of the never-retried
// classes. An unclassified error is neither terminal nor retriable.
func Terminal(err error) bool {
	var (
		ve *ValidationError
		pv *PolicyViolation
		rl *ResourceLimitExceeded
		rt *RateLimited
		ie *IntegrityError
	)
	return errors.As(err, &ve) || errors.As(err, &pv) || errors.As(err, &rl) ||
		errors.As(err, &rt) || errors.As(err, &ie)
}
