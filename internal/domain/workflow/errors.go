package workflow

import "errors"

var (
	// ErrTerminalStatus is returned when a transition is attempted on an
	// approved or rejected application
	ErrTerminalStatus = errors.New("application is in a terminal status")

	// ErrInvalidAction is returned when an action is not a valid flow-node action
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidStatus is returned when a status is not a valid application status
	ErrInvalidStatus = errors.New("invalid status")
)
