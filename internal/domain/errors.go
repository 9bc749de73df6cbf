package domain

import "errors"

var (
	// ErrConfiguration marks invalid startup configuration (empty asset
	// list, unknown strategy name). Fatal; never recovered silently.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInsufficientFunds is returned when a BUY would spend less than the
	// minimum trade size or drive cash negative. Expected and recoverable.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientHoldings is returned when a SELL would transact less
	// than the minimum trade size or drive a holding negative.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrPersistence marks a failed durable flush. The trade is not
	// recorded and the live portfolio is left unmutated.
	ErrPersistence = errors.New("persistence failure")

	ErrNotFound = errors.New("not found")
)
