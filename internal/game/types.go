package game

import (
	"time"

	"casino/internal/account"
	"casino/internal/ledger"
)

type CoinFlipRequest struct {
	Player     string `json:"player"`
	Amount     uint64 `json:"amount"`
	Prediction uint8  `json:"prediction"` // 0 = heads, 1 = tails
}

type DiceRollRequest struct {
	Player     string `json:"player"`
	Amount     uint64 `json:"amount"`
	Prediction uint8  `json:"prediction"` // target face 1..6
	IsOver     bool   `json:"is_over"`
}

type SlotsRequest struct {
	Player string `json:"player"`
	Amount uint64 `json:"amount"`
}

type InitializeRequest struct {
	Authority string `json:"authority"`
}

type FundVaultRequest struct {
	Authority string `json:"authority"`
	Amount    uint64 `json:"amount"`
}

// WagerResponse is returned for every play request, successful or not.
type WagerResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Outcome *WagerOutcome `json:"outcome,omitempty"`
	Balance uint64        `json:"balance,omitempty"`
}

// WagerOutcome describes one settled bet. It is published after the bet
// commits and never read back by the coordinator.
type WagerOutcome struct {
	ID                string           `json:"id"`
	Player            account.Identity `json:"player"`
	GameType          GameType         `json:"game_type"`
	BetAmount         uint64           `json:"bet_amount"`
	Prediction        uint8            `json:"prediction"`
	IsOver            bool             `json:"is_over,omitempty"`
	Result            uint16           `json:"result"`
	Reels             []int            `json:"reels,omitempty"`
	Won               bool             `json:"won"`
	MultiplierPercent uint64           `json:"multiplier_percent"`
	Payout            uint64           `json:"payout"`
	Seed              uint64           `json:"seed"`
	Timestamp         int64            `json:"timestamp"`
}

func (o WagerOutcome) record() ledger.Wager {
	return ledger.Wager{
		ID:         o.ID,
		Player:     o.Player,
		GameType:   o.GameType.Code(),
		BetAmount:  o.BetAmount,
		Prediction: o.Prediction,
		IsOver:     o.IsOver,
		Result:     o.Result,
		Won:        o.Won,
		Payout:     o.Payout,
		Seed:       o.Seed,
		CreatedAt:  time.Unix(o.Timestamp, 0).UTC(),
	}
}

// outcomeFromRecord rebuilds the published view of a stored wager.
// The multiplier is recomputed from the game rules.
func outcomeFromRecord(w ledger.Wager) WagerOutcome {
	gameType, _ := GameTypeFromCode(w.GameType)
	o := WagerOutcome{
		ID:         w.ID,
		Player:     w.Player,
		GameType:   gameType,
		BetAmount:  w.BetAmount,
		Prediction: w.Prediction,
		IsOver:     w.IsOver,
		Result:     w.Result,
		Won:        w.Won,
		Payout:     w.Payout,
		Seed:       w.Seed,
		Timestamp:  w.CreatedAt.Unix(),
	}

	switch gameType {
	case GameTypeCoinFlip:
		o.MultiplierPercent = CoinFlipMultiplierPercent
	case GameTypeDice:
		o.MultiplierPercent, _ = DiceMultiplierPercent(w.Prediction, w.IsOver)
	case GameTypeSlots:
		reels := DecodeReels(w.Result)
		o.Reels = reelsJSON(reels[:])
		o.MultiplierPercent = SlotsMultiplier(reels) * 100
	}
	return o
}

func reelsJSON(reels []uint8) []int {
	if len(reels) == 0 {
		return nil
	}
	out := make([]int, len(reels))
	for i, r := range reels {
		out[i] = int(r)
	}
	return out
}
