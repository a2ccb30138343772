package tiles

import (
	"errors"
	"fmt"
)

// sentinel errors matched by ResponseError codes
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrBackend      = errors.New("tile backend error")
)

// error codes reported by the server
const (
	CodeInvalidInput = "InvalidInput"
	CodeDBError      = "DBError"
)

// ResponseError represents an HTTP error response from the server.
// Title, Detail and Code are empty when the server didn't send them.
type ResponseError struct {
	StatusCode int
	Title      string
	Detail     string
	Code       string
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("tiles: HTTP %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is reports whether the error code matches one of the sentinel errors.
func (e *ResponseError) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Code == CodeInvalidInput
	case ErrBackend:
		return e.Code == CodeDBError
	default:
		return false
	}
}
