package engine

import "errors"

var (
	// ErrCaptureDenied reports that the environment refused the capture
	// grant or the handle has expired. Recoverable: request a fresh handle.
	ErrCaptureDenied = errors.New("capture denied")

	// ErrContextError reports that the audio processing context failed to
	// construct or resume. Fatal for the affected session.
	ErrContextError = errors.New("audio context error")

	// ErrNotFound reports that the operation targeted a session or graph
	// that does not exist. Recoverable: no-op or re-create.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyActive reports that a graph already exists for the id.
	// Callers treat this as idempotent success, not failure.
	ErrAlreadyActive = errors.New("session already active")

	// ErrHostClosed reports that the audio host has shut down and accepts
	// no further commands.
	ErrHostClosed = errors.New("audio host closed")
)
