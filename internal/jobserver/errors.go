package jobserver

import "errors"

var (
	// ErrInvalidJobType is returned when no worker is registered for a job type
	ErrInvalidJobType = errors.New("invalid job type")

	// ErrJobNotFound is returned when a job UUID is unknown or expired
	ErrJobNotFound = errors.New("job not found")
)
