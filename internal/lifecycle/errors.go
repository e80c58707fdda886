// Package lifecycle names the error kinds described in spec.md §7 so
// callers can branch on taxonomy rather than string-matching messages.
package lifecycle

import "errors"

// ProtocolDecodeError wraps a malformed varint, truncated frame or
// decompression mismatch. The offending connection must be dropped.
type ProtocolDecodeError struct {
	Err error
}

func (e *ProtocolDecodeError) Error() string { return "protocol decode: " + e.Err.Error() }
func (e *ProtocolDecodeError) Unwrap() error { return e.Err }

// ProtocolHijackViolation marks a packet that arrived in a state that
// doesn't expect it. Logged at debug level; the packet is dropped.
type ProtocolHijackViolation struct {
	State string
	What  string
}

func (e *ProtocolHijackViolation) Error() string {
	return "unexpected packet " + e.What + " in state " + e.State
}

// NetworkError wraps a connect/reset/timeout failure talking to the
// backend server.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// LifecycleError marks a child-process or graceful-stop failure.
type LifecycleError struct {
	Err error
}

func (e *LifecycleError) Error() string { return "lifecycle: " + e.Err.Error() }
func (e *LifecycleError) Unwrap() error { return e.Err }

// UserVisibleKick is not an error condition — it is a controlled outcome
// where the client is disconnected with a chosen message. It is defined
// here so call sites can use errors.As uniformly even though this kind
// never indicates a bug.
type UserVisibleKick struct {
	Reason string
}

func (e *UserVisibleKick) Error() string { return "kicked: " + e.Reason }

// ErrConfig names the configuration-error kind. Nothing in this module
// returns it: config.Load does not wrap its errors with it, and the
// core never produces it.
var ErrConfig = errors.New("lifecycle: configuration error")
