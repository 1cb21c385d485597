package game

import "errors"

var (
	ErrBetTooLow          = errors.New("bet amount is too low")
	ErrBetTooHigh         = errors.New("bet amount is too high")
	ErrInvalidBetAmount   = errors.New("invalid bet amount")
	ErrInvalidPrediction  = errors.New("invalid prediction")
	ErrPayoutOverflow     = errors.New("payout overflows")
	ErrTotalsOverflow     = errors.New("casino totals overflow")
	ErrNotInitialized     = errors.New("casino not initialized")
	ErrAlreadyInitialized = errors.New("casino already initialized")
	ErrUnauthorized       = errors.New("caller is not the casino authority")
	ErrUnknownGame        = errors.New("unknown game type")
	ErrInvalidRecord      = errors.New("invalid casino record")
)
