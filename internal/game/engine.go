package game

import (
	"log"

	"casino/internal/account"
)

type GameType string

const (
	GameTypeCoinFlip GameType = "coin_flip"
	GameTypeDice     GameType = "dice"
	GameTypeSlots    GameType = "slots"
)

// Code is the numeric game type carried in wager history.
func (g GameType) Code() uint8 {
	switch g {
	case GameTypeCoinFlip:
		return 0
	case GameTypeDice:
		return 1
	case GameTypeSlots:
		return 2
	}
	return 255
}

func GameTypeFromCode(code uint8) (GameType, bool) {
	switch code {
	case 0:
		return GameTypeCoinFlip, true
	case 1:
		return GameTypeDice, true
	case 2:
		return GameTypeSlots, true
	}
	return "", false
}

// Wager is a bet as submitted by a player.
type Wager struct {
	Player     account.Identity
	Amount     uint64
	Prediction uint8
	IsOver     bool
}

// Settlement is what an engine derives for a validated wager.
type Settlement struct {
	Result uint16
	Reels  []uint8
	Won    bool
	Payout uint64
	// MultiplierPercent is the payout factor times 100 (195 = 1.95x).
	MultiplierPercent uint64
}

// GameEngine holds the rules of one game. Engines are pure: Validate only
// reads the casino record and Settle only reads its arguments.
type GameEngine interface {
	GetType() GameType
	Validate(c *Casino, w Wager) error
	Settle(seed uint64, w Wager) (Settlement, error)
}

type GameFactory struct {
	engines map[GameType]GameEngine
}

func NewGameFactory() *GameFactory {
	return &GameFactory{
		engines: make(map[GameType]GameEngine),
	}
}

// NewDefaultGameFactory registers coin flip, dice and slots.
func NewDefaultGameFactory() *GameFactory {
	gf := NewGameFactory()
	gf.RegisterEngine(NewCoinFlipEngine())
	gf.RegisterEngine(NewDiceEngine())
	gf.RegisterEngine(NewSlotsEngine())
	return gf
}

func (gf *GameFactory) RegisterEngine(engine GameEngine) {
	gf.engines[engine.GetType()] = engine
	log.Printf("[FACTORY] Registered %s engine", engine.GetType())
}

func (gf *GameFactory) GetEngine(gameType GameType) (GameEngine, bool) {
	engine, exists := gf.engines[gameType]
	return engine, exists
}
