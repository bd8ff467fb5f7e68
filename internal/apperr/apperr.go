// internal/apperr/apperr.go

// Package apperr defines the tagged error variants produced at the service
// boundaries. Downstream code branches on the machine-readable code instead
// of inspecting error text.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION"
	CodeUnauthenticated   Code = "UNAUTHENTICATED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeInvalidAddress    Code = "INVALID_ADDRESS"
	CodeChainQuery        Code = "CHAIN_QUERY"
	CodeDecryption        Code = "DECRYPTION"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeInternal          Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
	Err     error

	// RetryAfter is set on rate-limit errors only.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfter,
	}
}

// CodeOf reports the code carried by err, or CodeInternal when err is not a
// tagged error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// MessageOf returns the caller-visible message for err. Untagged errors get
// a generic message so internals never leak by accident.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
