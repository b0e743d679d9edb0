/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place. Every structured error unwraps to a
  sentinel so callers can use errors.Is, and exposes a Code so the
  dispatcher and host adapters can map it to an outcome without type
  switches of their own.

ERROR CATEGORIES:
  1. Client errors - argument count, invalid argument, unknown function
  2. Conflict errors - duplicate natural ID
  3. Reference errors - refund for an order that does not exist
  4. Invariant errors - refund ceiling exceeded, corrupt refund history
  5. Codec errors - malformed stored record
  6. Store errors - host store failures, propagated unchanged

USAGE:
    out := dispatcher.Handle(ctx, "orderPay", args)
    var dup *ledger.DuplicateIDError
    if errors.As(out.Err, &dup) {
        // already committed, resubmission is a no-op for the caller
    }

SEE ALSO:
  - dispatcher.go: Converts errors into outcomes
  - api/handlers.go: Maps codes to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrArgumentCount is returned when a function gets the wrong number of arguments.
	ErrArgumentCount = errors.New("incorrect number of arguments")

	// ErrInvalidArgument is returned when an argument value is unusable.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateID is returned when a natural ID was already committed.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrReferenceNotFound is returned when a refund references a missing order.
	ErrReferenceNotFound = errors.New("reference not found")

	// ErrInvariantViolation is returned when a write would break a ledger invariant.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrCodec is returned when a stored record cannot be decoded.
	ErrCodec = errors.New("codec error")

	// ErrUnknownFunction is returned for function names outside the catalog.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrStoreAccess is returned when the host store fails.
	ErrStoreAccess = errors.New("store access failed")

	// ErrUnknownKind is returned when a record kind has no codec schema.
	ErrUnknownKind = errors.New("unknown record kind")
)

// =============================================================================
// ERROR CODES - Stable names exposed to callers
// =============================================================================

// Code is the external name of an error category.
type Code string

const (
	CodeArgumentCount      Code = "argument_count"
	CodeInvalidArgument    Code = "invalid_argument"
	CodeDuplicateID        Code = "duplicate_id"
	CodeReferenceNotFound  Code = "reference_not_found"
	CodeInvariantViolation Code = "invariant_violation"
	CodeCodec              Code = "codec"
	CodeUnknownFunction    Code = "unknown_function"
	CodeStoreAccess        Code = "store_access"
	CodeInternal           Code = "internal"
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ArgumentCountError reports an arity mismatch.
type ArgumentCountError struct {
	Function string
	Want     int
	Got      int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("Incorrect number of arguments for %s. Expecting %d, got %d", e.Function, e.Want, e.Got)
}

func (e *ArgumentCountError) Unwrap() error { return ErrArgumentCount }
func (e *ArgumentCountError) Code() Code    { return CodeArgumentCount }

// InvalidArgumentError reports an argument that cannot be used, such as an
// empty identifier or a non-integral refund amount.
type InvalidArgumentError struct {
	Function string
	Field    string
	Value    string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid %s %q: %s", e.Function, e.Field, e.Value, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }
func (e *InvalidArgumentError) Code() Code    { return CodeInvalidArgument }

// DuplicateIDError reports a key that already holds a record.
type DuplicateIDError struct {
	Key string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("id repeat: %s already exists", e.Key)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }
func (e *DuplicateIDError) Code() Code    { return CodeDuplicateID }

// ReferenceNotFoundError reports a refund whose order does not exist.
type ReferenceNotFoundError struct {
	Key     string
	OrderID string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("order_id not exist: %s", e.OrderID)
}

func (e *ReferenceNotFoundError) Unwrap() error { return ErrReferenceNotFound }
func (e *ReferenceNotFoundError) Code() Code    { return CodeReferenceNotFound }

// InvariantViolationError reports a refused write. Err, when set, is the
// underlying cause (for example a corrupt refund record).
type InvariantViolationError struct {
	OrderID string
	Reason  string
	Err     error
}

func (e *InvariantViolationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invariant violation for order %s: %s: %v", e.OrderID, e.Reason, e.Err)
	}
	return fmt.Sprintf("invariant violation for order %s: %s", e.OrderID, e.Reason)
}

func (e *InvariantViolationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvariantViolation, e.Err}
	}
	return []error{ErrInvariantViolation}
}

func (e *InvariantViolationError) Code() Code { return CodeInvariantViolation }

// CodecError reports malformed record bytes.
type CodecError struct {
	Record Kind
	Key    string
	Err    error
}

func (e *CodecError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("decode %s record at %s: %v", e.Record, e.Key, e.Err)
	}
	return fmt.Sprintf("codec %s record: %v", e.Record, e.Err)
}

func (e *CodecError) Unwrap() []error { return []error{ErrCodec, e.Err} }
func (e *CodecError) Code() Code      { return CodeCodec }

// UnknownFunctionError reports a function name outside the catalog.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("function error: %s", e.Name)
}

func (e *UnknownFunctionError) Unwrap() error { return ErrUnknownFunction }
func (e *UnknownFunctionError) Code() Code    { return CodeUnknownFunction }

// StoreAccessError wraps a host store failure.
type StoreAccessError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreAccessError) Unwrap() []error { return []error{ErrStoreAccess, e.Err} }
func (e *StoreAccessError) Code() Code      { return CodeStoreAccess }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// CodeOf returns the code of err, or CodeInternal if it carries none.
func CodeOf(err error) Code {
	var c interface{ Code() Code }
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrArgumentCount) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrUnknownFunction)
}

// IsConflict returns true if the identifier was already committed.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateID)
}

// IsNotFound returns true if the error indicates a missing referenced record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrReferenceNotFound)
}

func storeErr(op, key string, err error) error {
	var se *StoreAccessError
	if errors.As(err, &se) {
		return err
	}
	return &StoreAccessError{Op: op, Key: key, Err: err}
}
