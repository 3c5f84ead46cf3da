package engine

import "errors"

var (
	// ErrInvalidRequest means the trade request failed shape validation. No
	// side effect has happened.
	ErrInvalidRequest = errors.New("invalid trade request")

	// ErrInsufficientFunds means the reservation would exceed the available
	// balance. No state change beyond the emitted notification.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPositionNotFound means no position exists with the given ID.
	ErrPositionNotFound = errors.New("position not found")

	// ErrPositionAlreadyTerminal means the position has already settled and
	// cannot be overridden or cancelled.
	ErrPositionAlreadyTerminal = errors.New("position already terminal")

	// ErrPriceUnavailable means no reference price could be obtained for the
	// requested symbol.
	ErrPriceUnavailable = errors.New("price unavailable")
)
