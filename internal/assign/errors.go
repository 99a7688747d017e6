package assign

import (
	"errors"
	"fmt"
)

// Flow errors.
var (
	ErrNoActiveDrag            = errors.New("nothing is being carried")
	ErrInvalidDropTarget       = errors.New("invalid drop target")
	ErrBusy                    = errors.New("another scheduling operation is in progress")
	ErrStaleResponse           = errors.New("stale response discarded")
	ErrNoReview                = errors.New("no conflict review in progress")
	ErrVerificationPending     = errors.New("verification still in progress")
	ErrCommitInFlight          = errors.New("commit already sent")
	ErrSuggestionNotFound      = errors.New("suggestion not found")
	ErrSuggestionNotSelectable = errors.New("suggestion is not offered as an alternative")
	ErrAlreadySelected         = errors.New("suggestion already selected")
	ErrInvalidTransition       = errors.New("invalid flow transition")
)

// RejectedError is a local validation failure. It never reaches the network.
type RejectedError struct {
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected: %s", e.Reason)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}
