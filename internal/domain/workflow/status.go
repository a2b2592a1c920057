package workflow

// Status represents the lifecycle state of an application
type Status string

const (
	StatusPending   Status = "pending"
	StatusForwarded Status = "forwarded"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusPending:   true,
	StatusForwarded: true,
	StatusApproved:  true,
	StatusRejected:  true,
}

var terminalStatuses = map[Status]bool{
	StatusApproved: true,
	StatusRejected: true,
}

// IsTerminal returns true if the status is terminal (no further transitions allowed)
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is a valid application status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Action represents a recorded routing step in an application's flow chain
type Action string

const (
	ActionForwarded Action = "forwarded"
	ActionApproved  Action = "approved"
	ActionRejected  Action = "rejected"
)

var validActions = map[Action]bool{
	ActionForwarded: true,
	ActionApproved:  true,
	ActionRejected:  true,
}

// IsValid returns true if the action is a valid flow-node action
func (a Action) IsValid() bool {
	return validActions[a]
}

// IsTerminal returns true if the action ends the application's routing
func (a Action) IsTerminal() bool {
	return a == ActionApproved || a == ActionRejected
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
