package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by the engine wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failure")
	ErrTransfer     = errors.New("transfer failure")
	ErrSlippage     = errors.New("slippage exceeded")
)

var (
	ErrAuctionNotFound  = fmt.Errorf("%w: auction does not exist", ErrNotFound)
	ErrUnsupportedToken = fmt.Errorf("%w: token not supported", ErrNotFound)

	ErrAuctionExpired = fmt.Errorf("%w: auction expired", ErrInvalidState)
	ErrAuctionSettled = fmt.Errorf("%w: auction settled", ErrInvalidState)
	ErrNotYetExpired  = fmt.Errorf("%w: auction not yet expired", ErrInvalidState)
	ErrAuctionLive    = fmt.Errorf("%w: auction still live", ErrInvalidState)
	ErrPaused         = fmt.Errorf("%w: paused", ErrInvalidState)
	ErrReentrant      = fmt.Errorf("%w: reentrant call", ErrInvalidState)

	ErrBelowReserve    = fmt.Errorf("%w: bid below reserve price", ErrValidation)
	ErrBidTooLow       = fmt.Errorf("%w: bid below minimum increment", ErrValidation)
	ErrNothingPending  = fmt.Errorf("%w: no pending returns", ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be a non-negative whole number", ErrValidation)
	ErrMetadataTooLong = fmt.Errorf("%w: metadata too long", ErrValidation)
	ErrInvalidParams   = fmt.Errorf("%w: invalid auction parameters", ErrValidation)

	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", ErrTransfer)
)

// ErrorClass maps err onto its taxonomy name, as reported on the wire.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrValidation):
		return "validation_failure"
	case errors.Is(err, ErrSlippage):
		return "slippage_exceeded"
	case errors.Is(err, ErrTransfer):
		return "transfer_failure"
	default:
		return "internal"
	}
}
