package workflow

import "fmt"

// Next computes the application status that results from recording the given
// action on an application currently in the given status. The terminal guard
// lives here: once an application is approved or rejected, every further
// action fails.
//
// The resulting status always mirrors the action's literal value, so the
// chain tail and the application's cached status stay in sync.
func Next(current Status, action Action) (Status, error) {
	if !current.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, current)
	}
	if !action.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if current.IsTerminal() {
		return "", fmt.Errorf("%w: cannot apply %q to %q application", ErrTerminalStatus, action, current)
	}
	return Status(action), nil
}
