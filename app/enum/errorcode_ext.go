package enum

import "net/http"

// StatusCode maps the error code to the HTTP status sent to the caller.
// The zero ErrorCode and anything not recognized are treated as a server error.
func (e ErrorCode) StatusCode() int {
	switch e {
	case ErrorCodeInvalidInput:
		return http.StatusBadRequest
	case ErrorCodeDBError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// IsZero reports whether the code was never set.
func (e ErrorCode) IsZero() bool {
	return e == ErrorCode{}
}
