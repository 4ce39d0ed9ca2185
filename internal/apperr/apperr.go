// Package apperr defines the error taxonomy shared by the HTTP surface and the
// sync pipeline. Each error carries a Kind that maps to an HTTP status and a
// stable JSON tag.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an error with its place in the taxonomy.
type Kind string

const (
	KindConfiguration  Kind = "config_error"
	KindValidation     Kind = "validation_error"
	KindUpstream       Kind = "upstream_error"
	KindTransport      Kind = "transport_error"
	KindSchemaMismatch Kind = "schema_mismatch"
	KindInternal       Kind = "internal_error"
)

// Detail locates a single validation problem, e.g. a missing header.
type Detail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Error is a classified error. Status is only meaningful for KindUpstream,
// where it holds the upstream HTTP status.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Detail  []Detail
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Configuration reports a missing or invalid piece of process configuration.
func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing request input.
func Validation(message string, detail ...Detail) *Error {
	return &Error{Kind: KindValidation, Message: message, Detail: detail}
}

// Upstream reports a non-success response from an upstream service.
func Upstream(status int, err error) *Error {
	return &Error{Kind: KindUpstream, Status: status, Message: fmt.Sprintf("upstream returned %d", status), Err: err}
}

// Transport reports a network-level failure reaching an upstream service.
func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Message: "upstream unreachable", Err: err}
}

// SchemaMismatch reports a structured response that failed validation.
func SchemaMismatch(err error) *Error {
	return &Error{Kind: KindSchemaMismatch, Message: "response failed schema validation", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when none is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status returned by the inbound endpoint.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUpstream, KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error envelope written by the HTTP layer.
type Body struct {
	Error   Kind     `json:"error"`
	Message string   `json:"message"`
	Detail  []Detail `json:"detail,omitempty"`
}

// ToBody converts any error into the JSON envelope.
func ToBody(err error) Body {
	var e *Error
	if errors.As(err, &e) {
		return Body{Error: e.Kind, Message: e.Error(), Detail: e.Detail}
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Body{Error: KindInternal, Message: msg}
}
