package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoBaseURL is returned when the site URL is empty.
	ErrNoBaseURL = errors.New("no base URL specified")

	// ErrInvalidBaseURL is returned when the site URL is not an absolute
	// http or https URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidWorkers is returned when the worker count is out of range.
	ErrInvalidWorkers = errors.New("invalid worker count: must be between 1 and 128")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidPageSize is returned when the page size is not positive.
	ErrInvalidPageSize = errors.New("invalid page size: must be positive")

	// ErrInvalidRate is returned when the request rate is negative or NaN.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrInvalidBirthDate is returned when the age gate date is not a real
	// date in the past.
	ErrInvalidBirthDate = errors.New("invalid birth date")
)
