package game

import "fmt"

// SlotsEngine implements GameEngine for a three-reel, ten-symbol machine.
type SlotsEngine struct{}

func NewSlotsEngine() *SlotsEngine {
	return &SlotsEngine{}
}

func (e *SlotsEngine) GetType() GameType {
	return GameTypeSlots
}

func (e *SlotsEngine) Validate(c *Casino, w Wager) error {
	if w.Amount < c.MinBet || w.Amount > c.MaxBet {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidBetAmount, w.Amount, c.MinBet, c.MaxBet)
	}
	return nil
}

func (e *SlotsEngine) Settle(seed uint64, w Wager) (Settlement, error) {
	reels := SlotReels(seed, w.Player)
	won, payout, err := SlotsPayout(w.Amount, reels)
	if err != nil {
		return Settlement{}, err
	}
	return Settlement{
		Result:            EncodeReels(reels),
		Reels:             reels[:],
		Won:               won,
		Payout:            payout,
		MultiplierPercent: SlotsMultiplier(reels) * 100,
	}, nil
}
