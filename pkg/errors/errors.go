// Package errors carries a stable error code through wrapped error chains. Each code maps to
// the HTTP status and public text the API answers with.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeCapacityExceeded Code = "CAPACITY_EXCEEDED"
	CodePayloadTooLarge  Code = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeIdempotency      Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit        Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeDependency       Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces to API clients.
type Metadata struct {
	HTTPStatus int
	// Retryable marks failures a client may retry unchanged.
	Retryable     bool
	PublicMessage string
	// DetailsAllowed lets Details reach the response body.
	DetailsAllowed bool
}

const (
	withDetails = true
	noDetails   = false
	retry       = true
	final       = false
)

var catalog = map[Code]Metadata{
	CodeValidation:       {http.StatusBadRequest, final, "validation failed", withDetails},
	CodeUnauthorized:     {http.StatusUnauthorized, final, "authentication required", noDetails},
	CodeForbidden:        {http.StatusForbidden, final, "access denied", noDetails},
	CodeNotFound:         {http.StatusNotFound, final, "resource not found", noDetails},
	CodeConflict:         {http.StatusConflict, final, "conflict detected", noDetails},
	CodeCapacityExceeded: {http.StatusConflict, final, "category limit reached", withDetails},
	CodePayloadTooLarge:  {http.StatusRequestEntityTooLarge, final, "file too large", withDetails},
	CodeUnsupportedMedia: {http.StatusUnsupportedMediaType, final, "unsupported file type", withDetails},
	CodeIdempotency:      {http.StatusConflict, final, "idempotency key reused", withDetails},
	CodeRateLimit:        {http.StatusTooManyRequests, retry, "rate limit exceeded", noDetails},
	CodeInternal:         {http.StatusInternalServerError, retry, "internal server error", noDetails},
	CodeDependency:       {http.StatusServiceUnavailable, retry, "dependency unavailable", withDetails},
}

// MetadataFor treats unknown codes as CodeInternal.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
}

// Error is a coded failure. A nil *Error reads as CodeInternal with no message.
type Error struct {
	code    Code
	msg     string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, msg: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, msg: message, cause: err}
}

// WithDetails sets the structured payload shown to clients when the code allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
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
	return e.msg
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.msg
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stderrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
