package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the run should react to it.
type Kind string

const (
	KindConfiguration Kind = "CONFIGURATION_ERROR"
	KindInputNotFound Kind = "INPUT_NOT_FOUND"
	KindValidation    Kind = "VALIDATION_ERROR"
	KindRemote        Kind = "REMOTE_REJECTION"
	KindNotification  Kind = "NOTIFICATION_ERROR"
	KindUnknown       Kind = "UNKNOWN"
)

// AppError is the error type every pipeline step returns.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Configuration(message string, err error) *AppError {
	return &AppError{Kind: KindConfiguration, Message: message, Err: err}
}

func InputNotFound(message string, err error) *AppError {
	return &AppError{Kind: KindInputNotFound, Message: message, Err: err}
}

func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func Notification(message string, err error) *AppError {
	return &AppError{Kind: KindNotification, Message: message, Err: err}
}

// RemoteRejection is returned when the directory service refuses a request.
// Message carries the service-provided text verbatim.
type RemoteRejection struct {
	StatusCode int
	Reason     string
	Message    string
}

func (r *RemoteRejection) Error() string {
	if r.Reason != "" {
		return fmt.Sprintf("status=%d reason=%s: %s", r.StatusCode, r.Reason, r.Message)
	}
	return fmt.Sprintf("status=%d: %s", r.StatusCode, r.Message)
}

func Remote(message string, rejection *RemoteRejection) *AppError {
	return &AppError{Kind: KindRemote, Message: message, Err: rejection}
}

// KindOf returns the Kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
