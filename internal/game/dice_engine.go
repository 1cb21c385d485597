package game

import "fmt"

// DiceEngine implements GameEngine for a six-sided over/under roll.
type DiceEngine struct{}

func NewDiceEngine() *DiceEngine {
	return &DiceEngine{}
}

func (e *DiceEngine) GetType() GameType {
	return GameTypeDice
}

func (e *DiceEngine) Validate(c *Casino, w Wager) error {
	if w.Amount < c.MinBet || w.Amount > c.MaxBet {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidBetAmount, w.Amount, c.MinBet, c.MaxBet)
	}
	// Also rejects targets that cannot win in the chosen direction.
	_, err := DiceWinChance(w.Prediction, w.IsOver)
	return err
}

func (e *DiceEngine) Settle(seed uint64, w Wager) (Settlement, error) {
	multiplier, err := DiceMultiplierPercent(w.Prediction, w.IsOver)
	if err != nil {
		return Settlement{}, err
	}
	roll := DiceOutcome(seed, w.Player)
	won, payout, err := DicePayout(w.Amount, w.Prediction, w.IsOver, roll)
	if err != nil {
		return Settlement{}, err
	}
	return Settlement{
		Result:            uint16(roll),
		Won:               won,
		Payout:            payout,
		MultiplierPercent: multiplier,
	}, nil
}
