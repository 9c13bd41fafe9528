// Package apperr defines the error kinds surfaced by the API and their HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds. Match with errors.Is.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream service failed")
	ErrStore        = errors.New("store error")
)

// Error carries a kind, a client facing message and optional details.
type Error struct {
	Kind    error
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record of the given entity.
func NotFound(entity string, id any) error {
	return &Error{
		Kind:    ErrNotFound,
		Message: "Resource not found",
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// Validation reports input rejected by a validator; details hold per-field info.
func Validation(message string, details any) error {
	return &Error{Kind: ErrValidation, Message: message, Details: details}
}

func BadRequest(err error) error {
	return &Error{Kind: ErrBadRequest, Message: err.Error(), Err: err}
}

func Conflict(message string, err error) error {
	return &Error{Kind: ErrConflict, Message: message, Err: err}
}

func Unauthorized(message string) error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

func Upstream(service string, err error) error {
	return &Error{Kind: ErrUpstream, Message: service + " request failed", Err: err}
}

func Store(err error) error {
	return &Error{Kind: ErrStore, Err: err}
}

// Status maps an error to the HTTP status used in responses.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Code returns the machine readable code for the error kind.
func Code(err error) string {
	switch Status(err) {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusBadGateway:
		return "UPSTREAM_ERROR"
	}
	return "INTERNAL_ERROR"
}

// Public returns the message and details safe to send to clients.
// Unexpected errors are reduced to a generic message.
func Public(err error) (string, any) {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrStore {
		msg := e.Message
		if msg == "" {
			msg = e.Error()
		}
		return msg, e.Details
	}
	return "Internal server error", nil
}
