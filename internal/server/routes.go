package server

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func (s *FiberServer) RegisterFiberRoutes() {
	// Apply CORS middleware
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api/v1")

	api.Get("/casino", s.getCasinoHandler)
	api.Post("/casino/initialize", s.initializeHandler)
	api.Post("/casino/fund", s.fundVaultHandler)

	api.Get("/accounts/:id/balance", s.getBalanceHandler)
	api.Post("/accounts/:id/airdrop", s.airdropHandler)
	api.Get("/accounts/:id/wagers", s.getAccountWagersHandler)

	api.Get("/wagers", s.getWagersHandler)

	s.App.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.App.Get("/ws", websocket.New(s.wagerFeedHandler))
}
