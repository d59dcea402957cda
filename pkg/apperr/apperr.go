// Package apperr defines the typed errors raised by the analysis core.
// The core never formats user-facing text; outer layers inspect the Kind
// to decide how to log and what to show.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error
type Kind string

const (
	KindFileIO     Kind = "file_io"
	KindValidation Kind = "validation"
	KindProcessing Kind = "processing"
	KindNotFound   Kind = "not_found"
	KindBadRequest Kind = "bad_request"
	KindInternal   Kind = "internal"
)

// Error is an application error with a human readable message and a detail
// string carrying the underlying cause.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FileIO is returned by the format reader when no parsing strategy succeeds.
func FileIO(message string, cause error) *Error {
	e := &Error{Kind: KindFileIO, Message: message, Cause: cause}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// Validation is returned when a dataset breaks the column contract.
func Validation(message, detail string) *Error {
	return &Error{Kind: KindValidation, Message: message, Detail: detail}
}

// Processing is returned by the ML adapters on insufficient data or a failed computation.
func Processing(message string, cause error) *Error {
	e := &Error{Kind: KindProcessing, Message: message, Cause: cause}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func BadRequest(message string, cause error) *Error {
	e := &Error{Kind: KindBadRequest, Message: message, Cause: cause}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to a response status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindFileIO, KindBadRequest:
		return http.StatusBadRequest
	case KindValidation, KindProcessing:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
