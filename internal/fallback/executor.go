// Package fallback walks an ordered list of supplier calls and returns the
// first success. Calls run strictly one at a time.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/dividends/internal/domain"
	"github.com/rs/zerolog"
)

// Policy decides what a NotEligibleError does to the chain.
type Policy int

const (
	// StopOnNotEligible surfaces the first not-eligible answer immediately.
	StopOnNotEligible Policy = iota
	// ContinueOnNotEligible treats it like any other supplier failure.
	ContinueOnNotEligible
)

func (p Policy) String() string {
	if p == ContinueOnNotEligible {
		return "continue"
	}
	return "stop"
}

// ParsePolicy accepts "stop" or "continue".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "stop":
		return StopOnNotEligible, nil
	case "continue":
		return ContinueOnNotEligible, nil
	default:
		return 0, fmt.Errorf("unknown not-eligible policy %q", s)
	}
}

// Attempt is one queued supplier call.
type Attempt[T any] struct {
	Supplier string
	Call     func(ctx context.Context) (T, error)
}

// Executor holds the policy and logger shared by every chain.
type Executor struct {
	policy Policy
	log    zerolog.Logger
}

// New creates an executor.
func New(policy Policy, log zerolog.Logger) *Executor {
	return &Executor{
		policy: policy,
		log:    log.With().Str("component", "fallback").Logger(),
	}
}

// Policy returns the executor's not-eligible policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Run invokes attempts in order until one returns a value that also passes
// check (nil check accepts everything). It returns the value and the name of
// the supplier that produced it. Exhausting the queue yields
// *domain.AllSuppliersFailedError; a cancelled ctx stops the walk and
// returns ctx.Err().
func Run[T any](ctx context.Context, e *Executor, op domain.Capability, key string, attempts []Attempt[T], check func(T) error) (T, string, error) {
	var zero T
	failures := make([]*domain.SupplierFailure, 0, len(attempts))

	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		value, err := invoke(ctx, attempt)
		if err == nil && check != nil {
			if checkErr := check(value); checkErr != nil {
				err = fmt.Errorf("unusable result: %w", checkErr)
			}
		}
		if err == nil {
			e.log.Debug().
				Str("operation", string(op)).
				Str("key", key).
				Str("supplier", attempt.Supplier).
				Int("attempt", i+1).
				Msg("Supplier succeeded")
			return value, attempt.Supplier, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, "", ctxErr
		}

		var notEligible *domain.NotEligibleError
		if errors.As(err, &notEligible) && e.policy == StopOnNotEligible {
			e.log.Info().
				Str("operation", string(op)).
				Str("key", key).
				Str("supplier", attempt.Supplier).
				Msg("Supplier reported instrument not eligible, stopping")
			return zero, attempt.Supplier, notEligible
		}

		failures = append(failures, &domain.SupplierFailure{Supplier: attempt.Supplier, Err: err})
		e.log.Warn().
			Err(err).
			Str("operation", string(op)).
			Str("key", key).
			Str("supplier", attempt.Supplier).
			Int("remaining", len(attempts)-i-1).
			Msg("Supplier failed, trying next")
	}

	return zero, "", &domain.AllSuppliersFailedError{Operation: op, Key: key, Failures: failures}
}

// invoke converts a supplier panic into an error so one broken supplier
// cannot take down the request.
func invoke[T any](ctx context.Context, attempt Attempt[T]) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("supplier panicked: %v", p)
		}
	}()
	return attempt.Call(ctx)
}
