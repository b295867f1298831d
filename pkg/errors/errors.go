package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrInvalidArgument
	ErrOutOfRange
	ErrSchedulingConflict
	ErrDuplicateActiveEntry
	ErrAlreadyCancelled
	ErrCrossClinicianSwap
	ErrLockContention
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`

	// Conflicts carries the colliding intervals when Code is
	// ErrSchedulingConflict, so callers can retry intelligently.
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Conflict identifies one colliding commitment interval.
type Conflict struct {
	CommitmentID uuid.UUID `json:"commitment_id"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Code extracts the ErrorCode from any error chain, ErrInternal if absent.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return Code(err) == code
}

// Error constructors

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func AccessDenied(err error) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: "access denied",
		Err:     err,
	}
}

func InvalidArgument(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidArgument,
		Message: message,
	}
}

func OutOfRange(message string) *AppError {
	return &AppError{
		Code:    ErrOutOfRange,
		Message: message,
	}
}

func SchedulingConflict(conflicts []Conflict) *AppError {
	return &AppError{
		Code:      ErrSchedulingConflict,
		Message:   "requested interval conflicts with an existing commitment",
		Conflicts: conflicts,
	}
}

// LockContention signals that another request currently holds the clinician's
// schedule lock. The write was never attempted; callers can safely retry.
func LockContention(clinicianID uuid.UUID) *AppError {
	return &AppError{
		Code:    ErrLockContention,
		Message: fmt.Sprintf("schedule for clinician %s is busy, retry shortly", clinicianID),
	}
}

func DuplicateActiveEntry(patientID, clinicianID uuid.UUID) *AppError {
	return &AppError{
		Code:    ErrDuplicateActiveEntry,
		Message: fmt.Sprintf("patient %s already has an active waitlist entry for clinician %s", patientID, clinicianID),
	}
}

func AlreadyCancelled(id uuid.UUID) *AppError {
	return &AppError{
		Code:    ErrAlreadyCancelled,
		Message: fmt.Sprintf("commitment %s is already cancelled", id),
	}
}

func CrossClinicianSwap() *AppError {
	return &AppError{
		Code:    ErrCrossClinicianSwap,
		Message: "commitments belong to different clinicians",
	}
}
