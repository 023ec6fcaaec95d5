package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrNotFound is returned when a requested resource doesn't exist
var ErrNotFound = errors.New("resource not found")

// ErrInvalidInput is returned when the provided input is invalid
var ErrInvalidInput = errors.New("invalid input")

// ErrUnauthorized is returned when the caller lacks the required pairing or permissions
var ErrUnauthorized = errors.New("unauthorized")

// ErrInternal is returned for unexpected internal errors
var ErrInternal = errors.New("internal error")

// HAP status codes carried in JSON response bodies.
const (
	HAPStatusSuccess                   = 0
	HAPStatusInsufficientPrivileges    = -70401
	HAPStatusServiceCommunication      = -70402
	HAPStatusResourceBusy              = -70403
	HAPStatusReadOnly                  = -70404
	HAPStatusWriteOnly                 = -70405
	HAPStatusNotificationNotSupported  = -70406
	HAPStatusOutOfResource             = -70407
	HAPStatusTimedOut                  = -70408
	HAPStatusResourceDoesNotExist      = -70409
	HAPStatusInvalidValue              = -70410
	HAPStatusInsufficientAuthorization = -70411
)

// StatusConnectionAuthorizationRequired is the HAP-specific HTTP status for
// requests on a connection that has not completed pair-verify.
const StatusConnectionAuthorizationRequired = 470

// StatusError is an application error that carries an explicit HTTP status.
// HAPStatus, when non-zero, is rendered as {"status": HAPStatus} in the body.
type StatusError struct {
	Code      int
	HAPStatus int
	Err       error
}

func (e *StatusError) Error() string {
	msg := http.StatusText(e.Code)
	if msg == "" {
		msg = fmt.Sprintf("status %d", e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.Err }

// WithStatus wraps err so that it surfaces as the given HTTP status.
func WithStatus(code int, err error) error {
	return &StatusError{Code: code, Err: err}
}

// WithHAPStatus wraps err with an HTTP status and a HAP status body.
func WithHAPStatus(code, hapStatus int, err error) error {
	return &StatusError{Code: code, HAPStatus: hapStatus, Err: err}
}

// StatusOf extracts the StatusError from err, if any.
func StatusOf(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// LogErrorAndReturn logs an error with structured context and returns it
func LogErrorAndReturn(logger *slog.Logger, err error, message string, args ...any) error {
	if err == nil {
		return nil
	}
	logger.Error(message, append([]any{"error", err}, args...)...)
	return err
}

// WrapErrorf wraps an error with additional context using fmt.Errorf
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// IsNotFound returns true if the error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput returns true if the error is or wraps ErrInvalidInput
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnauthorized returns true if the error is or wraps ErrUnauthorized
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// NotFoundf returns a formatted ErrNotFound error
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// InvalidInputf returns a formatted ErrInvalidInput error
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// Unauthorizedf returns a formatted ErrUnauthorized error
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnauthorized)...)
}

// Internalf returns a formatted ErrInternal error
func Internalf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInternal)...)
}
