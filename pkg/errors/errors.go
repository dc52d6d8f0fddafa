package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Internal wraps an infrastructure failure.
func Internal(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternalError, message)
}

// Common error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeRoomNotFound       = "ROOM_NOT_FOUND"
	ErrCodeAdmissionClosed    = "ADMISSION_CLOSED"
	ErrCodeGameAlreadyStarted = "GAME_ALREADY_STARTED"
	ErrCodeNotHost            = "NOT_HOST"
	ErrCodeInsufficientPlayer = "INSUFFICIENT_PLAYERS"
)

var domainCodes = map[string]bool{
	ErrCodeValidation:         true,
	ErrCodeRoomNotFound:       true,
	ErrCodeAdmissionClosed:    true,
	ErrCodeGameAlreadyStarted: true,
	ErrCodeNotHost:            true,
	ErrCodeInsufficientPlayer: true,
}

// CodeOf returns the AppError code in err's chain, or ErrCodeInternalError
// for anything that is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// IsDomain reports whether err is a validation/domain failure whose message
// may be shown to the end user.
func IsDomain(err error) bool {
	return domainCodes[CodeOf(err)]
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf returns the user-facing message of a domain error. Infrastructure
// failures get a generic message.
func MessageOf(err error) string {
	var appErr *AppError
	if IsDomain(err) && stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
