package snapshot

import "errors"

var (
	// ErrLoaderRequired is returned when a cache is created without a loader.
	ErrLoaderRequired = errors.New("snapshot loader required")

	// ErrBuilderRequired is returned when a cache is created without an index builder.
	ErrBuilderRequired = errors.New("index builder required")
)
