package port

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not resolve
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("record already exists")

	// ErrConflict is returned when a conditional update matched no rows,
	// i.e. the caller raced another writer and must retry against fresh state
	ErrConflict = errors.New("concurrent modification detected")
)
