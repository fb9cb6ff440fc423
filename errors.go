package tenderqa

import "errors"

var (
	// ErrSourceRequired is returned when an engine is created without a data source.
	ErrSourceRequired = errors.New("data source required")

	// ErrClosed is returned when an engine is used after Close.
	ErrClosed = errors.New("engine closed")
)
