package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientCredits is returned when the balance check succeeded and
// reported a non-positive usable balance.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ValidationError indicates malformed caller input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// FailureKind classifies a vendor call failure. The vendor client assigns
// exactly one kind per failure; both its retry loop and the poller's
// consecutive-failure counter branch on it.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureNetwork     FailureKind = "network_error"
	FailureServerError FailureKind = "server_error"
	FailureClientError FailureKind = "client_error"
)

// Retryable reports whether the vendor client may re-issue the request.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTimeout, FailureNetwork, FailureServerError:
		return true
	}
	return false
}

// VendorError is the single shape every provider failure is coerced into,
// whether it originated in the transport or in the vendor's error body.
// HTTPStatus is zero when no response was received.
type VendorError struct {
	Kind       FailureKind
	Message    string
	HTTPStatus int
}

func (e *VendorError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("vendor error (%s, status %d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("vendor error (%s): %s", e.Kind, e.Message)
}

// GenerationFailedError means the vendor explicitly reported job failure.
type GenerationFailedError struct {
	JobID  string
	Reason string
}

func (e *GenerationFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("generation failed for job %s", e.JobID)
	}
	return fmt.Sprintf("generation failed for job %s: %s", e.JobID, e.Reason)
}

// GenerationTimedOutError means the polling budget was exhausted without a
// terminal vendor state. The vendor may already have billed the attempt.
type GenerationTimedOutError struct {
	JobID    string
	Attempts int
}

func (e *GenerationTimedOutError) Error() string {
	return fmt.Sprintf("generation timed out for job %s after %d status checks; credits may already have been deducted", e.JobID, e.Attempts)
}
