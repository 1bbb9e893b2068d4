package library

import "errors"

var (
	// ErrNotFound is returned for unknown addresses, gates, proposals and campaigns.
	ErrNotFound = errors.New("not found")
	// ErrSourceUnavailable marks a single signal source that could not be reached.
	ErrSourceUnavailable = errors.New("signal source unavailable")
	// ErrAllSourcesUnavailable is the only collection failure surfaced to callers.
	ErrAllSourcesUnavailable = errors.New("no signal source could be reached")
	ErrInvalidAddress        = errors.New("invalid chain address")
	ErrVerificationFailed    = errors.New("identity verification failed")
	ErrInvalidWeights        = errors.New("invalid score weights")
	ErrUnsupportedSource     = errors.New("unsupported identity source")
)
