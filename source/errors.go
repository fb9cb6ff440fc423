package source

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrLocationRequired is returned when no dataset location is configured.
	ErrLocationRequired = errors.New("dataset location required")

	// ErrUnsupportedKind is returned for an unknown dataset format.
	ErrUnsupportedKind = errors.New("unsupported dataset kind")
)
