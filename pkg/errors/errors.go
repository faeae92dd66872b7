package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// Kind identifies the category of an AppError, per the engine's error taxonomy.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindNotFound            Kind = "NOT_FOUND"
	KindConflict            Kind = "CONFLICT"
	KindLeaseConflict       Kind = "LEASE_CONFLICT"
	KindLeaseExpired        Kind = "LEASE_EXPIRED"
	KindNoPath              Kind = "NO_PATH"
	KindTimeout             Kind = "TIMEOUT"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindInternal            Kind = "INTERNAL"
)

var httpStatus = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindNotFound:            http.StatusNotFound,
	KindConflict:            http.StatusConflict,
	KindLeaseConflict:       http.StatusLocked,
	KindLeaseExpired:        http.StatusGone,
	KindNoPath:              http.StatusNotFound,
	KindTimeout:             http.StatusGatewayTimeout,
	KindUpstreamUnavailable: http.StatusServiceUnavailable,
	KindInternal:            http.StatusInternalServerError,
}

// AppError is the single error type surfaced across the engine and its HTTP surface.
type AppError struct {
	Kind       Kind                   `json:"kind"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error's Kind to the HTTP status code it should produce.
func (e *AppError) HTTPStatus() int {
	if status, ok := httpStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

func newError(kind Kind, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		StackTrace: captureStack(),
	}
}

func NewValidation(message string) *AppError {
	return newError(KindValidation, message)
}

func NewNotFound(resource string) *AppError {
	return newError(KindNotFound, fmt.Sprintf("%s not found", resource))
}

func NewConflict(message string) *AppError {
	return newError(KindConflict, message)
}

func NewLeaseConflict(resourceKey, holder string) *AppError {
	return newError(KindLeaseConflict, fmt.Sprintf("resource %q is leased by %q", resourceKey, holder))
}

func NewLeaseExpired(leaseID string) *AppError {
	return newError(KindLeaseExpired, fmt.Sprintf("lease %q has expired", leaseID))
}

func NewNoPath(from, to string) *AppError {
	return newError(KindNoPath, fmt.Sprintf("no path from %q to %q", from, to))
}

func NewTimeout(operation string) *AppError {
	return newError(KindTimeout, fmt.Sprintf("operation %q timed out", operation))
}

func NewUpstreamUnavailable(service string) *AppError {
	return newError(KindUpstreamUnavailable, fmt.Sprintf("upstream %q is unavailable", service))
}

func NewInternal(message string) *AppError {
	return newError(KindInternal, message)
}

// New constructs an AppError of an arbitrary Kind, for callers (such as
// wsstore's remote-error decoder) that recover a Kind dynamically rather
// than through one of the Kind-specific constructors above.
func New(kind Kind, message string) *AppError {
	return newError(kind, message)
}

// As extracts an *AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err is an AppError of the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

func IsNotFound(err error) bool            { return Is(err, KindNotFound) }
func IsValidation(err error) bool          { return Is(err, KindValidation) }
func IsConflict(err error) bool            { return Is(err, KindConflict) }
func IsLeaseConflict(err error) bool       { return Is(err, KindLeaseConflict) }
func IsLeaseExpired(err error) bool        { return Is(err, KindLeaseExpired) }
func IsNoPath(err error) bool              { return Is(err, KindNoPath) }
func IsTimeout(err error) bool             { return Is(err, KindTimeout) }
func IsUpstreamUnavailable(err error) bool { return Is(err, KindUpstreamUnavailable) }
func IsInternal(err error) bool            { return Is(err, KindInternal) }

// Wrap wraps err as an internal AppError, preserving message context if err is
// already an AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return NewInternal(message).WithCause(err)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
