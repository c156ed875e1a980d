package storage

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrEmptyKey is returned when a record has no name to be stored under.
	ErrEmptyKey = errors.New("record key is empty")
)
