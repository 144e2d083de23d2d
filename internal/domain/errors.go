package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound matches every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a failed lookup of a contract, shipment, tank or party.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CapacityExceededError is returned when a requested quantity does not fit
// into what is left of the parent's declared quantity.
type CapacityExceededError struct {
	Parent    string // "contract" or "shipment"
	ParentID  string
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("Quantity %s exceeds remaining %s capacity of %s (remaining %s)",
		e.Requested.String(), e.Parent, e.ParentID, e.Remaining.String())
}

// DateRangeReason distinguishes the two ways a child date range can be invalid.
type DateRangeReason string

const (
	DateOutsideParentWindow DateRangeReason = "outside_parent_window"
	DateEndBeforeStart      DateRangeReason = "end_before_start"
)

// DateRangeError reports dates that do not nest inside the parent's window.
type DateRangeError struct {
	Reason DateRangeReason
	Window string // e.g. "contract delivery", "shipment"
	Child  string // set when an existing child no longer fits a changed parent
}

func (e *DateRangeError) Error() string {
	if e.Reason == DateEndBeforeStart {
		return "Arrival date cannot be before departure date"
	}
	if e.Child != "" {
		return fmt.Sprintf("%s would fall outside the %s window", e.Child, e.Window)
	}
	return fmt.Sprintf("Dates must fall within the %s window", e.Window)
}

// RoutingViolationError carries every structural rule a routing request broke.
type RoutingViolationError struct {
	Errors []string
}

func (e *RoutingViolationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// ValidationError is a rejected input (bad quantity, unknown status, out-of-range quality).
type ValidationError struct {
	Errors []string
}

func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// ConflictError is an operation refused because of the current state of a record.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func Conflictf(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
