package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeUnbalanced        Code = "UNBALANCED_TRANSACTION"
	CodeDegenerate        Code = "DEGENERATE_TRANSACTION"
	CodeAccountFrozen     Code = "ACCOUNT_FROZEN"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeNotAuthorized     Code = "TRANSACTION_NOT_AUTHORIZED"
	CodeLockTimeout       Code = "LOCK_TIMEOUT"
)

// Metadata describes how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus int
	// Retryable codes tell the client to try again with the same request.
	Retryable bool
	// PublicMessage replaces the error message unless ClientMessage is set.
	PublicMessage string
	// ClientMessage codes carry a message written for the caller.
	ClientMessage  bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", ClientMessage: true, DetailsAllowed: true},
	CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", ClientMessage: true},
	CodeForbidden:     {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied", ClientMessage: true},
	CodeNotFound:      {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found", ClientMessage: true},
	CodeConflict:      {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected", ClientMessage: true},
	CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", ClientMessage: true, DetailsAllowed: true},
	CodeIdempotency:   {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", ClientMessage: true, DetailsAllowed: true},
	CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded", ClientMessage: true},
	CodeInternal:      {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error"},
	CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},

	CodeUnbalanced:        {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "debits and credits do not balance", ClientMessage: true, DetailsAllowed: true},
	CodeDegenerate:        {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "transaction amount must be positive", ClientMessage: true, DetailsAllowed: true},
	CodeAccountFrozen:     {HTTPStatus: http.StatusLocked, PublicMessage: "account is frozen", ClientMessage: true, DetailsAllowed: true},
	CodeInsufficientFunds: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "insufficient funds", ClientMessage: true, DetailsAllowed: true},
	CodeNotAuthorized:     {HTTPStatus: http.StatusForbidden, PublicMessage: "transaction not authorized", ClientMessage: true, DetailsAllowed: true},
	CodeLockTimeout:       {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "resource busy, retry with the same idempotency key"},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// PublicMessage is the message a client may see for e.
func (e *Error) PublicMessage() string {
	meta := MetadataFor(e.Code())
	if meta.ClientMessage && e.Message() != "" {
		return e.Message()
	}
	return meta.PublicMessage
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsInvalidShape reports whether the code rejects a posting for its entry set.
func IsInvalidShape(code Code) bool {
	return code == CodeUnbalanced || code == CodeDegenerate
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
