package game

import "fmt"

const (
	CoinHeads uint8 = 0
	CoinTails uint8 = 1
)

// CoinFlipEngine implements GameEngine for a 1.95x heads/tails call.
type CoinFlipEngine struct{}

func NewCoinFlipEngine() *CoinFlipEngine {
	return &CoinFlipEngine{}
}

func (e *CoinFlipEngine) GetType() GameType {
	return GameTypeCoinFlip
}

// Validate checks each bound separately so callers can tell which was hit.
func (e *CoinFlipEngine) Validate(c *Casino, w Wager) error {
	if w.Amount < c.MinBet {
		return fmt.Errorf("%w: %d below minimum %d", ErrBetTooLow, w.Amount, c.MinBet)
	}
	if w.Amount > c.MaxBet {
		return fmt.Errorf("%w: %d above maximum %d", ErrBetTooHigh, w.Amount, c.MaxBet)
	}
	if w.Prediction > CoinTails {
		return fmt.Errorf("%w: coin side must be 0 or 1, got %d", ErrInvalidPrediction, w.Prediction)
	}
	return nil
}

func (e *CoinFlipEngine) Settle(seed uint64, w Wager) (Settlement, error) {
	result := CoinFlipOutcome(seed, w.Player)
	won, payout, err := CoinFlipPayout(w.Amount, w.Prediction, result)
	if err != nil {
		return Settlement{}, err
	}
	return Settlement{
		Result:            uint16(result),
		Won:               won,
		Payout:            payout,
		MultiplierPercent: CoinFlipMultiplierPercent,
	}, nil
}
