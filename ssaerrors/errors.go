// Package ssaerrors defines the typed error kinds shared across the core, per
// the error handling design: per-object and per-pair failures are local
// recoveries (skip and continue), assessment-level failures surface to the
// caller as one of these types.
package ssaerrors

import "fmt"

// InvalidElementSetError reports a malformed or constraint-violating element set.
// It is a per-object failure: callers skip the object and continue.
type InvalidElementSetError struct {
	CatalogID uint32
	Reason    string
}

func (e *InvalidElementSetError) Error() string {
	return fmt.Sprintf("invalid element set for catalog id %d: %s", e.CatalogID, e.Reason)
}

// NewInvalidElementSet constructs an InvalidElementSetError.
func NewInvalidElementSet(catalogID uint32, reason string) error {
	return &InvalidElementSetError{CatalogID: catalogID, Reason: reason}
}

// PropagationError reports an SGP4 or numerical integrator failure. It is a
// per-object or per-pair failure: callers skip and continue.
type PropagationError struct {
	Code   string
	Reason string
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagation error [%s]: %s", e.Code, e.Reason)
}

// NewPropagationError constructs a PropagationError.
func NewPropagationError(code, reason string) error {
	return &PropagationError{Code: code, Reason: reason}
}

// NumericalFailureError reports a covariance or Pc computation that could not
// produce a trustworthy result (non-PSD after symmetrization, sigma
// underflow). It is an assessment-level failure: the event is not emitted.
type NumericalFailureError struct {
	Reason string
}

func (e *NumericalFailureError) Error() string {
	return fmt.Sprintf("numerical failure: %s", e.Reason)
}

// NewNumericalFailure constructs a NumericalFailureError.
func NewNumericalFailure(reason string) error {
	return &NumericalFailureError{Reason: reason}
}

// NotFoundError reports a missing event store lookup.
type NotFoundError struct {
	EventID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("event not found: %s", e.EventID)
}

// NewNotFound constructs a NotFoundError.
func NewNotFound(eventID string) error {
	return &NotFoundError{EventID: eventID}
}

// CancelledError reports cooperative cancellation of a screening run.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "screening run cancelled" }

// ErrCancelled is the sentinel CancelledError value.
var ErrCancelled error = &CancelledError{}

// NoCloseApproachError reports that the two-stage search found no
// CloseApproach within the configured screening/risk thresholds for an
// assess() call. Per spec.md §6's CLI exit codes, this is distinct from
// PropagationError: the search ran to completion, it simply found nothing
// worth an Event.
type NoCloseApproachError struct {
	PrimaryID, SecondaryID uint32
}

func (e *NoCloseApproachError) Error() string {
	return fmt.Sprintf("no close approach found for pair (%d, %d) within configured thresholds", e.PrimaryID, e.SecondaryID)
}

// NewNoCloseApproach constructs a NoCloseApproachError.
func NewNoCloseApproach(primaryID, secondaryID uint32) error {
	return &NoCloseApproachError{PrimaryID: primaryID, SecondaryID: secondaryID}
}

// ConfigError reports a configuration value that fails validation before any
// propagation is attempted.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Reason)
}

// NewConfigError constructs a ConfigError.
func NewConfigError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}
