package game

import (
	"fmt"
	"math/bits"
)

const (
	CoinFlipMultiplierPercent uint64 = 195 // 1.95x against fair 2x
	DiceEdgePercent           uint64 = 95
	diceFaces                 uint64 = 6

	SlotsJackpotSymbol     uint8  = 7
	SlotsJackpotMultiplier uint64 = 25
	SlotsTripleMultiplier  uint64 = 10
	SlotsPairMultiplier    uint64 = 2
)

// CoinFlipPayout pays bet*195/100 when the outcome matches the prediction.
func CoinFlipPayout(bet uint64, prediction, outcome uint8) (bool, uint64, error) {
	if outcome != prediction {
		return false, 0, nil
	}
	payout, err := mulDiv(bet, CoinFlipMultiplierPercent, 100)
	if err != nil {
		return false, 0, err
	}
	return true, payout, nil
}

// DiceWinChance counts the faces that win for prediction in the given mode.
func DiceWinChance(prediction uint8, isOver bool) (uint64, error) {
	if prediction < 1 || uint64(prediction) > diceFaces {
		return 0, fmt.Errorf("%w: dice target %d outside 1..6", ErrInvalidPrediction, prediction)
	}
	var chance uint64
	if isOver {
		chance = diceFaces - uint64(prediction)
	} else {
		chance = uint64(prediction) - 1
	}
	if chance == 0 {
		return 0, fmt.Errorf("%w: target %d %s can never win", ErrInvalidPrediction, prediction, diceMode(isOver))
	}
	return chance, nil
}

// DiceMultiplierPercent is (600 / chance) * 95 / 100. The integer division
// happens first; the truncation is part of the payout table.
func DiceMultiplierPercent(prediction uint8, isOver bool) (uint64, error) {
	chance, err := DiceWinChance(prediction, isOver)
	if err != nil {
		return 0, err
	}
	return (diceFaces * 100 / chance) * DiceEdgePercent / 100, nil
}

// DicePayout pays bet*multiplier/100 when the roll lands strictly over
// (or under) the prediction.
func DicePayout(bet uint64, prediction uint8, isOver bool, outcome uint8) (bool, uint64, error) {
	multiplier, err := DiceMultiplierPercent(prediction, isOver)
	if err != nil {
		return false, 0, err
	}

	won := outcome < prediction
	if isOver {
		won = outcome > prediction
	}
	if !won {
		return false, 0, nil
	}

	payout, err := mulDiv(bet, multiplier, 100)
	if err != nil {
		return false, 0, err
	}
	return true, payout, nil
}

// SlotsMultiplier is a whole-number multiplier: 25 for three jackpot
// symbols, 10 for any other triple, 2 for a pair, 0 otherwise.
func SlotsMultiplier(reels [3]uint8) uint64 {
	r1, r2, r3 := reels[0], reels[1], reels[2]
	switch {
	case r1 == r2 && r2 == r3 && r1 == SlotsJackpotSymbol:
		return SlotsJackpotMultiplier
	case r1 == r2 && r2 == r3:
		return SlotsTripleMultiplier
	case r1 == r2 || r2 == r3 || r1 == r3:
		return SlotsPairMultiplier
	default:
		return 0
	}
}

func SlotsPayout(bet uint64, reels [3]uint8) (bool, uint64, error) {
	multiplier := SlotsMultiplier(reels)
	if multiplier == 0 {
		return false, 0, nil
	}
	payout, err := mulDiv(bet, multiplier, 1)
	if err != nil {
		return false, 0, err
	}
	return true, payout, nil
}

// mulDiv computes a*b/d, failing instead of wrapping when a*b exceeds 64 bits.
func mulDiv(a, b, d uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", ErrPayoutOverflow, a, b)
	}
	return lo / d, nil
}

func diceMode(isOver bool) string {
	if isOver {
		return "over"
	}
	return "under"
}
