// Package common defines shared constants and sentinel errors used across
// the desk service and console. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Input errors.
	ErrorInvalidSource = errors.New("invalid record source")
	ErrorInvalidStatus = errors.New("invalid record status")
	ErrorInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
)
