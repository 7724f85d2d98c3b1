package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds connection setup to external services.
	DefaultTimeout = 10 * time.Second

	// ShortTimeout is for quick round trips (pings, cache lookups).
	ShortTimeout = 5 * time.Second

	// JobTimeout bounds one run of a background job.
	JobTimeout = 2 * time.Minute
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}

// WithJobTimeout creates a context for a single background job run.
func WithJobTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, JobTimeout)
}
