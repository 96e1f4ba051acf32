package protocol

import "fmt"

// RemoteError is an ERROR frame from the controller, propagated to the
// command that solicited it. It enables typed discrimination via errors.As.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("controller error: %s", e.Reason)
}
