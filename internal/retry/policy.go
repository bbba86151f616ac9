// Package retry runs an operation a bounded number of times.
package retry

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxAttempts is the attempt budget used when none is configured.
const DefaultMaxAttempts = 3

// ErrExhausted is matched by the error returned once every attempt has failed.
var ErrExhausted = errors.New("retry budget exhausted")

// ExhaustedError carries the attempt count and the last failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrExhausted, e.Attempts, e.Last)
}

// Unwrap exposes both ErrExhausted and the last failure to errors.Is/As.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Policy re-attempts immediately, without backoff, until an attempt succeeds or the
// budget runs out. Context cancellation stops the loop early.
type Policy struct {
	maxAttempts int
	onFailure   func(attempt int, err error)
}

// Option customizes a Policy.
type Option func(*Policy)

// WithOnFailure registers a hook called after each failed attempt.
func WithOnFailure(fn func(attempt int, err error)) Option {
	return func(p *Policy) {
		p.onFailure = fn
	}
}

// NewPolicy builds a policy allowing maxAttempts attempts. Values below one fall back to
// DefaultMaxAttempts.
func NewPolicy(maxAttempts int, opts ...Option) Policy {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	p := Policy{maxAttempts: maxAttempts}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// MaxAttempts returns the attempt budget.
func (p Policy) MaxAttempts() int {
	return p.maxAttempts
}

// Run calls op until it returns nil. Every error counts as a failure.
func (p Policy) Run(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do calls op until it succeeds and returns its value, or returns an *ExhaustedError.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	budget := p.maxAttempts
	if budget < 1 {
		budget = DefaultMaxAttempts
	}
	var last error
	for attempt := 1; attempt <= budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry canceled: %w", err)
		}
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		last = err
		if p.onFailure != nil {
			p.onFailure(attempt, err)
		}
	}
	return zero, &ExhaustedError{Attempts: budget, Last: last}
}
