package service

import "errors"

// ValidationError rejects bad input before any network call is made
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	// ErrSettlementInProgress means another submission of the same blob is
	// currently being processed
	ErrSettlementInProgress = errors.New("settlement for this transaction is already in progress")

	// ErrKeyReuseMismatch means a known blob prefix arrived with a different
	// amount or campaign than the one originally settled
	ErrKeyReuseMismatch = errors.New("transaction already processed with a different request")
)
