// Package domainerrors carries coded errors from services to transports.
//
// Services return *Error values (optionally wrapping an underlying cause) and
// transports translate the Code into a status via ToHTTPStatus. Stores should
// not construct these directly; they return sentinel errors instead.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeLookupFailed       Code = "lookup_failed"
	CodePersistFailed      Code = "persist_failed"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without an underlying cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Coder is implemented by typed errors that map onto a domain code without
// being an *Error themselves.
type Coder interface {
	DomainCode() Code
}

// CodeOf returns the outermost code found in the chain, or CodeInternal.
// Joined errors are searched in order.
func CodeOf(err error) Code {
	if code, ok := codeOf(err); ok {
		return code
	}
	return CodeInternal
}

// Coded reports the outermost code in the chain and whether there is one.
func Coded(err error) (Code, bool) {
	return codeOf(err)
}

func codeOf(err error) (Code, bool) {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code, true
		case Coder:
			return e.DomainCode(), true
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				if code, ok := codeOf(inner); ok {
					return code, true
				}
			}
			return "", false
		}
		err = errors.Unwrap(err)
	}
	return "", false
}

// HasCode reports whether any error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			if e.Code == code {
				return true
			}
		case Coder:
			if e.DomainCode() == code {
				return true
			}
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				if HasCode(inner, code) {
					return true
				}
			}
			return false
		}
		err = errors.Unwrap(err)
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// ToHTTPStatus maps a code onto an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeLookupFailed:
		return http.StatusBadGateway
	case CodePersistFailed, CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
