package domain

import "errors"

var (
	// ErrKitNotFound is returned when a kit id does not exist in the store
	ErrKitNotFound = errors.New("kit not found")

	// ErrInvalidRuleSet is returned for rule sets violating their invariants.
	// This is a configuration error: fatal, never retried, kit stays ERROR
	// until the author edits it.
	ErrInvalidRuleSet = errors.New("invalid kit rule set")

	// ErrInvalidConceptItem is returned for malformed concept items at import time
	ErrInvalidConceptItem = errors.New("invalid concept item")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrMarketplaceUnavailable is the distinguishable transient kind:
	// the lookup capability is rate-limited, blocked or down. Triggers the
	// fallback strategy and is retried on the next scheduled cycle.
	ErrMarketplaceUnavailable = errors.New("marketplace temporarily unavailable")

	// ErrMarketplaceAPIFailure is returned for non-transient marketplace failures
	ErrMarketplaceAPIFailure = errors.New("marketplace API request failed")

	// ErrPersistence is returned when the atomic kit save fails; the prior
	// kit state remains valid and visible
	ErrPersistence = errors.New("kit persistence failed")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
