// Package enum defines the small closed sets of values shared across packages.
package enum

//go:generate go run github.com/go-pkgz/enum@latest -type errorCode
type errorCode int

const (
	errorCodeInvalidInput errorCode = iota
	errorCodeDBError
)
