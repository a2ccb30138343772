package tile

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/transect/tileserver/app/enum"
)

// Error is a per-request failure carrying an optional title and detail.
// Code drives the response status, see enum.ErrorCode.StatusCode. The zero code maps to 500.
type Error struct {
	Title  string
	Detail string
	Code   enum.ErrorCode
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Title != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Title, e.Detail)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Title)
	}
}

// StatusCode returns the HTTP status for the error.
func (e *Error) StatusCode() int {
	return e.Code.StatusCode()
}

// StatusCode returns the HTTP status for any error returned by the pipeline.
// Errors without a recognized code map to 500.
func StatusCode(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.StatusCode()
	}
	return http.StatusInternalServerError
}

// GenericDetail is the only detail exposed to callers when tile generation fails.
const GenericDetail = "An unexpected error occurred."

func errMissingValue() *Error {
	return &Error{
		Title:  "Missing Value",
		Detail: "A required input parameter is missing.",
		Code:   enum.ErrorCodeInvalidInput,
	}
}

func errInvalidType(name string) *Error {
	return &Error{
		Title:  "Invalid Value Type",
		Detail: fmt.Sprintf("The value for '%s' is of the incorrect type.", name),
		Code:   enum.ErrorCodeInvalidInput,
	}
}

func errUnsupportedFormat(format string) *Error {
	return &Error{
		Detail: fmt.Sprintf("The format '%s' is not supported.", format),
		Code:   enum.ErrorCodeInvalidInput,
	}
}

func errBackend() *Error {
	return &Error{Detail: GenericDetail, Code: enum.ErrorCodeDBError}
}
