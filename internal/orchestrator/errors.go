package orchestrator

import "errors"

// Error taxonomy for the orchestrator, per spec.md §7. Resource and
// upstream errors are neither redefined nor re-exported here; they come
// from their own packages as *resource.ErrExhausted and
// breaker.ErrUpstreamUnavailable.
var (
	ErrValidation = errors.New("orchestrator: validation failed")
	ErrCancelled  = errors.New("orchestrator: job cancelled")
	ErrFatal      = errors.New("orchestrator: fatal error")
)
