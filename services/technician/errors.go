package technician

import "fmt"

// InvalidTransitionError indicates a lifecycle status change the
// transition table does not allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// InvalidStateError indicates an availability operation attempted from
// the wrong state, e.g. starting a break while offline.
type InvalidStateError struct {
	Op    string
	State string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.State)
}
