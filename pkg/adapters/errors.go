package adapters

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a backend failure for retry and ladder logic.
type ErrorClass string

const (
	// ClassUnavailable indicates the backend itself cannot be used here
	// (binary missing, platform mismatch). The ladder advances without
	// counting an attempt.
	ClassUnavailable ErrorClass = "unavailable"

	// ClassTransient indicates a temporary failure that may succeed on
	// retry: network timeouts, package-manager lock contention.
	ClassTransient ErrorClass = "transient"

	// ClassPermanent indicates a non-recoverable failure: unsupported
	// platform, missing prerequisite, backend-reported hard error.
	ClassPermanent ErrorClass = "permanent"
)

// BackendError is a classified installation-backend error.
type BackendError struct {
	// Class drives retry and ladder behavior.
	Class ErrorClass `json:"class"`

	// Message is the human-readable summary.
	Message string `json:"message"`

	// Method is the adapter method name, if known.
	Method string `json:"method,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

func (e *BackendError) Error() string {
	msg := e.Message
	if e.Method != "" {
		msg = fmt.Sprintf("[%s] %s", e.Method, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }

// WithMethod tags the error with the adapter method name.
func (e *BackendError) WithMethod(method string) *BackendError {
	e.Method = method
	return e
}

// NewUnavailableError creates an error marking the backend unusable here.
func NewUnavailableError(message string, err error) *BackendError {
	return &BackendError{Class: ClassUnavailable, Message: message, Err: err}
}

// NewTransientError creates a retryable error.
func NewTransientError(message string, err error) *BackendError {
	return &BackendError{Class: ClassTransient, Message: message, Err: err}
}

// NewPermanentError creates a non-retryable error.
func NewPermanentError(message string, err error) *BackendError {
	return &BackendError{Class: ClassPermanent, Message: message, Err: err}
}

// IsUnavailable reports whether err marks the backend as unusable.
func IsUnavailable(err error) bool { return classOf(err) == ClassUnavailable }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool { return classOf(err) == ClassTransient }

// IsPermanent reports whether err is non-retryable.
func IsPermanent(err error) bool { return classOf(err) == ClassPermanent }

func classOf(err error) ErrorClass {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Class
	}
	return ""
}
