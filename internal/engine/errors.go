package engine

import "fmt"

// InputReason classifies why player input was rejected before any provider
// call was made.
type InputReason string

const (
	ReasonEmpty     InputReason = "empty"
	ReasonTooLong   InputReason = "too_long"
	ReasonTurnLimit InputReason = "turn_limit"
	ReasonFlagged   InputReason = "flagged"
)

// InputError rejects a turn without touching any provider. It is the
// caller's cue to surface the message to the player as-is.
type InputError struct {
	Reason  InputReason
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input (%s): %s", e.Reason, e.Message)
}
