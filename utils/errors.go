package utils

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeMethodNotAllow = "METHOD_NOT_ALLOWED"
	CodeOriginDenied   = "CORS_ORIGIN_DENIED"
	CodeRequestError   = "REQUEST_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
	CodeNotImplemented = "NOT_IMPLEMENTED"
)

// AppError is an error that carries the HTTP status and code it should be
// rendered with. The stack is captured when the error is built.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	Err     error

	stack []byte
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.Status
}

func (e *AppError) ErrorCode() string {
	return e.Code
}

func (e *AppError) StackTrace() string {
	return string(e.stack)
}

// WithDetails attaches extra context rendered outside production.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// Wrap sets the underlying cause.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

func NewAppError(status int, code, message string) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		stack:   debug.Stack(),
	}
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message)
}

func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message)
}

func Internal(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternal, message).Wrap(err)
}

// ErrOriginNotAllowed builds the denial raised by the origin policy.
func ErrOriginNotAllowed(origin string) *AppError {
	return NewAppError(http.StatusForbidden, CodeOriginDenied, "origin not allowed by CORS policy").
		WithDetails(map[string]any{"origin": origin})
}

// IsOriginDenied reports whether err is (or wraps) an origin policy denial.
func IsOriginDenied(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeOriginDenied
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		if status := sc.StatusCode(); status >= 400 && status <= 599 {
			return status
		}
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code carried by err, or "".
func CodeOf(err error) string {
	var ec interface{ ErrorCode() string }
	if errors.As(err, &ec) {
		return ec.ErrorCode()
	}
	return ""
}

// StackOf returns the stack carried by err, or "".
func StackOf(err error) string {
	var st interface{ StackTrace() string }
	if errors.As(err, &st) {
		return st.StackTrace()
	}
	return ""
}
