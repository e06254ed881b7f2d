// Package sentinel holds infrastructure errors returned by stores. Services
// translate them into their own domain errors.
package sentinel

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means a conditional write lost against a concurrent writer.
	ErrConflict = errors.New("conflict")
)
