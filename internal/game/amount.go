package game

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// lamportsDecimals is the scale between minor units and display units.
const lamportsDecimals = 9

var ErrInvalidAmount = errors.New("invalid amount")

var maxLamports = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// FormatSOL renders minor units as a major-unit decimal string ("0.01").
func FormatSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -lamportsDecimals).String()
}

// ParseSOL converts a major-unit decimal string to minor units. Fractions
// finer than one lamport are rejected rather than rounded.
func ParseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, s)
	}
	lamports := d.Shift(lamportsDecimals)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, s, lamportsDecimals)
	}
	if lamports.GreaterThan(maxLamports) {
		return 0, fmt.Errorf("%w: %s too large", ErrInvalidAmount, s)
	}
	return lamports.BigInt().Uint64(), nil
}
