package ai

import "errors"

var (
	// ErrProvider indicates a failure in the embedding provider
	// (network, auth, quota). Transient; callers may retry.
	ErrProvider = errors.New("embedding provider failure")

	// ErrEmptyInput indicates an attempt to embed empty text.
	// Detected before any provider call is made.
	ErrEmptyInput = errors.New("cannot embed empty text")
)
