package server

// RegisterGameRoutes registers the play endpoint of every game
func (s *FiberServer) RegisterGameRoutes() {
	api := s.App.Group("/api/v1")

	// Coin flip routes
	coin := api.Group("/coinflip")
	coin.Post("/play", s.coinFlipHandler)

	// Dice routes
	dice := api.Group("/dice")
	dice.Post("/roll", s.diceRollHandler)

	// Slots routes
	slots := api.Group("/slots")
	slots.Post("/spin", s.slotsSpinHandler)
}
