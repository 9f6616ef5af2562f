package id

import "errors"

// ErrInvalidULID is returned when a string fails ULID validation.
var ErrInvalidULID = errors.New("id: invalid ULID")

// ErrInvalidUUID is returned when a string fails UUID validation.
var ErrInvalidUUID = errors.New("id: invalid UUID")
