// Package aerr collects the sentinel errors of the error taxonomy in spec
// section 7: Malformed, SequenceMismatch, ProtocolStatus, Timeout,
// Canceled, NetworkUnavailable, ResourceExhausted. Package-specific errors
// elsewhere (wire.MalformedError, aecp.ErrTimeout, acmp.ErrCanceled, ...)
// wrap the matching sentinel here with fmt.Errorf's %w, so callers can
// errors.Is against one taxonomy regardless of which layer raised it.
package aerr

import "errors"

var (
	// ErrMalformed is the taxonomy root for wire.MalformedError: a parser
	// rejected structurally invalid bytes. The frame is dropped; the
	// event loop is never interrupted.
	ErrMalformed = errors.New("avdecc: malformed")

	// ErrSequenceMismatch means a response's sequence_id matched no
	// in-flight command for its (destination, kind); logged at DEBUG and
	// dropped.
	ErrSequenceMismatch = errors.New("avdecc: sequence id matched no in-flight command")

	// ErrProtocolStatus means a matched response carried a non-SUCCESS
	// status; propagated to the caller as a notification (the event's
	// Status field) rather than a Go error return. No package in this
	// module returns or wraps this sentinel.
	ErrProtocolStatus = errors.New("avdecc: non-success status in matched response")

	// ErrTimeout means a command exhausted its retries (AECP) or its
	// single attempt (ACMP) without a matching response.
	ErrTimeout = errors.New("avdecc: command timed out")

	// ErrCanceled means a command was abandoned before completion,
	// typically because its destination entity departed.
	ErrCanceled = errors.New("avdecc: command canceled")

	// ErrNetworkUnavailable is what Controller.Run returns when the network
	// collaborator's frame channel closes. A failed Send is only logged; the
	// affected command stays in flight until its own timeout and retry run
	// out.
	ErrNetworkUnavailable = errors.New("avdecc: network collaborator unavailable")

	// ErrResourceExhausted means the notification or log ring overflowed;
	// recorded only in the ring's MissedCount, never returned from a
	// command.
	ErrResourceExhausted = errors.New("avdecc: ring buffer overflowed")
)
