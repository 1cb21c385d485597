package game

import "casino/internal/account"

// Outcomes are (seed XOR identity byte) reduced to the game's domain. Anyone
// who knows the slot and the player's key can compute the result before the
// bet lands. Recorded outcomes depend on this exact formula; do not swap in a
// secure RNG without re-deriving every recorded result.

// CoinFlipOutcome returns 0 (heads) or 1 (tails).
func CoinFlipOutcome(seed uint64, player account.Identity) uint8 {
	return uint8((seed ^ uint64(player[0])) % 2)
}

// DiceOutcome returns a face in 1..6.
func DiceOutcome(seed uint64, player account.Identity) uint8 {
	return uint8((seed^uint64(player[0]))%6 + 1)
}

// SlotReels returns three reels in 0..9, one per leading identity byte.
func SlotReels(seed uint64, player account.Identity) [3]uint8 {
	var reels [3]uint8
	for i := range reels {
		reels[i] = uint8((seed ^ uint64(player[i])) % 10)
	}
	return reels
}

// EncodeReels packs reels into one result value as r1*100 + r2*10 + r3.
// The value needs 16 bits; a single byte would wrap for any r1 above 2.
func EncodeReels(reels [3]uint8) uint16 {
	return uint16(reels[0])*100 + uint16(reels[1])*10 + uint16(reels[2])
}

func DecodeReels(result uint16) [3]uint8 {
	return [3]uint8{uint8(result / 100 % 10), uint8(result / 10 % 10), uint8(result % 10)}
}
