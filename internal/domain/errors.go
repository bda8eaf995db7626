package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInstrumentNotFound is wrapped by suppliers that do not know an instrument.
var ErrInstrumentNotFound = errors.New("instrument not found")

// ValidationError reports malformed caller input. It is raised before any
// cache or supplier is consulted.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NotEligibleError is a supplier's authoritative answer that an instrument
// pays no dividend.
type NotEligibleError struct {
	Supplier string
	ISIN     string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("%s: %s is not a dividend-paying instrument", e.Supplier, e.ISIN)
}

// SupplierFailure is any failure of a single supplier call.
type SupplierFailure struct {
	Supplier string
	Err      error
}

func (e *SupplierFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Supplier, e.Err)
}

func (e *SupplierFailure) Unwrap() error {
	return e.Err
}

// AllSuppliersFailedError is returned once every supplier in a chain failed.
type AllSuppliersFailedError struct {
	Operation Capability
	Key       string
	Failures  []*SupplierFailure
}

func (e *AllSuppliersFailedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s %s: no suppliers available", e.Operation, e.Key)
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s %s: all suppliers failed: %s", e.Operation, e.Key, strings.Join(parts, "; "))
}

func (e *AllSuppliersFailedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// UnresolvedInstrumentError is returned for a dividend lookup on an
// instrument id that was never resolved.
type UnresolvedInstrumentError struct {
	ID string
}

func (e *UnresolvedInstrumentError) Error() string {
	return fmt.Sprintf("instrument %s must be resolved before its dividend can be fetched", e.ID)
}

// ResolutionError wraps every error surfaced by the resolution service with
// the operation and input key that produced it.
type ResolutionError struct {
	Operation string
	Key       string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s(%s): %v", e.Operation, e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
