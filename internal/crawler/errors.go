package crawler

import "errors"

var (
	// ErrInvalidWorkers is returned when the worker count is out of range.
	ErrInvalidWorkers = errors.New("worker count must be between 1 and 128")

	// ErrNoSessionFactory is returned when New is called without a factory.
	ErrNoSessionFactory = errors.New("session factory is required")
)
