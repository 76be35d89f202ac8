package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound              = errors.New("entity not found")
	ErrValidation            = errors.New("invalid input")
	ErrCapacityExceeded      = errors.New("job already has the maximum number of assignments")
	ErrStateConflict         = errors.New("conflicting job state")
	ErrAlreadyAssigned       = errors.New("technician is already assigned to this job")
	ErrDuplicateRegistration = errors.New("a pending registration already exists for this phone")
	ErrAlreadyExists         = errors.New("entity already exists")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrInvalidExecContext    = errors.New("invalid query execution context")
)

// MaxAssignmentsPerJob is the hard cap on active assignments per job.
// It is a business rule, not a tunable.
const MaxAssignmentsPerJob = 2

// CompletionGateError reports why a completion request was refused.
// Missing names the unmet precondition so the caller can show it verbatim.
type CompletionGateError struct {
	Missing string
}

func (e *CompletionGateError) Error() string {
	return fmt.Sprintf("completion refused: %s", e.Missing)
}

// NewCompletionGateError builds the gate error for a named precondition.
func NewCompletionGateError(missing string) error {
	return &CompletionGateError{Missing: missing}
}

// DeliveryError records a single failed send during dispatch or a sweep.
// It is aggregated, never propagated as a top-level failure.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to chat %d failed: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
