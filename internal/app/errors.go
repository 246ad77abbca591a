package app

import "errors"

var (
	// ErrImageStorageUnavailable is returned when object storage was not
	// configured for this process.
	ErrImageStorageUnavailable = errors.New("image storage not configured")

	// ErrItemNotFound is returned by image operations that need an existing item.
	ErrItemNotFound = errors.New("item not found")
)

// ValidationError reports a missing required field on a write request.
// The message is safe to show to clients.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}
