package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"casino/internal/account"
	"casino/internal/game"
	"casino/internal/ledger"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrBetTooLow),
		errors.Is(err, game.ErrBetTooHigh),
		errors.Is(err, game.ErrInvalidBetAmount),
		errors.Is(err, game.ErrInvalidPrediction),
		errors.Is(err, game.ErrInvalidAmount),
		errors.Is(err, game.ErrUnknownGame),
		errors.Is(err, game.ErrPayoutOverflow),
		errors.Is(err, account.ErrInvalidIdentity),
		errors.Is(err, ledger.ErrAmountOutOfRange):
		return fiber.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.StatusPaymentRequired
	case errors.Is(err, game.ErrUnauthorized),
		errors.Is(err, ledger.ErrUnauthorizedTransfer):
		return fiber.StatusForbidden
	case errors.Is(err, game.ErrNotInitialized):
		return fiber.StatusNotFound
	case errors.Is(err, game.ErrAlreadyInitialized):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func failure(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("[SERVER] %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(game.WagerResponse{
		Success: false,
		Message: err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(game.WagerResponse{
		Success: false,
		Message: message,
	})
}

// Health handler
func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"ledger": s.ledger,
		"game": fiber.Map{
			"status":            "running",
			"connected_clients": s.hub.GetClientCount(),
		},
	}
	if s.db != nil {
		health["database"] = s.db.Health()
	}
	if s.cache != nil {
		health["cache"] = s.cache.Health()
	}
	return c.JSON(health)
}

// Casino handlers

func (s *FiberServer) getCasinoHandler(c *fiber.Ctx) error {
	casino, err := s.manager.Casino(c.Context())
	if err != nil {
		return failure(c, err)
	}
	vaultBalance, err := s.manager.VaultBalance(c.Context())
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(fiber.Map{
		"address":           s.manager.CasinoAddress(),
		"vault":             s.manager.VaultAddress(),
		"authority":         casino.Authority,
		"vault_bump":        casino.VaultBump,
		"house_edge":        casino.HouseEdge,
		"min_bet":           casino.MinBet,
		"max_bet":           casino.MaxBet,
		"total_wagered":     casino.TotalWagered,
		"total_payout":      casino.TotalPayout,
		"vault_balance":     vaultBalance,
		"vault_balance_sol": game.FormatSOL(vaultBalance),
	})
}

func (s *FiberServer) initializeHandler(c *fiber.Ctx) error {
	var req game.InitializeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	authority, err := account.ParseIdentity(req.Authority)
	if err != nil {
		return failure(c, err)
	}

	casino, err := s.manager.Initialize(c.Context(), authority)
	if err != nil {
		return failure(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Casino initialized",
		"address": s.manager.CasinoAddress(),
		"vault":   s.manager.VaultAddress(),
		"casino":  casino,
	})
}

func (s *FiberServer) fundVaultHandler(c *fiber.Ctx) error {
	var req game.FundVaultRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	// Not authentication: the named authority is trusted as the signer.
	authority, err := account.ParseIdentity(req.Authority)
	if err != nil {
		return failure(c, err)
	}

	if err := s.manager.FundVault(c.Context(), authority, req.Amount); err != nil {
		return failure(c, err)
	}

	vaultBalance, _ := s.manager.VaultBalance(c.Context())
	return c.JSON(fiber.Map{
		"success":           true,
		"message":           "Vault funded",
		"vault_balance":     vaultBalance,
		"vault_balance_sol": game.FormatSOL(vaultBalance),
	})
}

// Account handlers

func (s *FiberServer) getBalanceHandler(c *fiber.Ctx) error {
	id, err := account.ParseIdentity(c.Params("id"))
	if err != nil {
		return failure(c, err)
	}

	balance, err := s.manager.Balance(c.Context(), id)
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(fiber.Map{
		"account":  id,
		"lamports": balance,
		"sol":      game.FormatSOL(balance),
	})
}

// airdropHandler credits test funds. The amount is given either in
// lamports or as a decimal SOL string.
func (s *FiberServer) airdropHandler(c *fiber.Ctx) error {
	id, err := account.ParseIdentity(c.Params("id"))
	if err != nil {
		return failure(c, err)
	}

	var body struct {
		Amount uint64 `json:"amount"`
		SOL    string `json:"sol"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}

	amount := body.Amount
	if body.SOL != "" {
		if amount, err = game.ParseSOL(body.SOL); err != nil {
			return failure(c, err)
		}
	}
	if amount == 0 {
		return badRequest(c, "Airdrop amount is required")
	}

	balance, err := s.manager.Airdrop(c.Context(), id, amount)
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"account":  id,
		"lamports": balance,
		"sol":      game.FormatSOL(balance),
	})
}

func (s *FiberServer) getAccountWagersHandler(c *fiber.Ctx) error {
	id, err := account.ParseIdentity(c.Params("id"))
	if err != nil {
		return failure(c, err)
	}

	wagers, err := s.manager.RecentWagers(c.Context(), c.QueryInt("limit", 0), &id)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(fiber.Map{"wagers": wagers})
}

func (s *FiberServer) getWagersHandler(c *fiber.Ctx) error {
	var player *account.Identity
	if p := c.Query("player"); p != "" {
		id, err := account.ParseIdentity(p)
		if err != nil {
			return failure(c, err)
		}
		player = &id
	}

	wagers, err := s.manager.RecentWagers(c.Context(), c.QueryInt("limit", 0), player)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(fiber.Map{"wagers": wagers})
}

// Game handlers

func (s *FiberServer) coinFlipHandler(c *fiber.Ctx) error {
	var req game.CoinFlipRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return s.respond(c, req.Player, func(ctx context.Context, player account.Identity) (*game.WagerOutcome, error) {
		return s.manager.PlayCoinFlip(ctx, player, req.Amount, req.Prediction)
	})
}

func (s *FiberServer) diceRollHandler(c *fiber.Ctx) error {
	var req game.DiceRollRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return s.respond(c, req.Player, func(ctx context.Context, player account.Identity) (*game.WagerOutcome, error) {
		return s.manager.PlayDiceRoll(ctx, player, req.Amount, req.Prediction, req.IsOver)
	})
}

func (s *FiberServer) slotsSpinHandler(c *fiber.Ctx) error {
	var req game.SlotsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return s.respond(c, req.Player, func(ctx context.Context, player account.Identity) (*game.WagerOutcome, error) {
		return s.manager.PlaySlots(ctx, player, req.Amount)
	})
}

type playFunc func(ctx context.Context, player account.Identity) (*game.WagerOutcome, error)

func (s *FiberServer) respond(c *fiber.Ctx, rawPlayer string, play playFunc) error {
	if rawPlayer == "" {
		return badRequest(c, "Player is required")
	}
	// Not authentication: the named player is trusted as the stake signer.
	player, err := account.ParseIdentity(rawPlayer)
	if err != nil {
		return failure(c, err)
	}

	resp, err := s.play(c.Context(), player, play)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(resp)
}

func (s *FiberServer) play(ctx context.Context, player account.Identity, play playFunc) (game.WagerResponse, error) {
	outcome, err := play(ctx, player)
	if err != nil {
		return game.WagerResponse{}, err
	}

	message := "You lost"
	if outcome.Won {
		message = "You won " + game.FormatSOL(outcome.Payout) + " SOL"
	}
	balance, _ := s.manager.Balance(ctx, player)

	return game.WagerResponse{
		Success: true,
		Message: message,
		Outcome: outcome,
		Balance: balance,
	}, nil
}

// WebSocket handler

type wsRequest struct {
	Type       string        `json:"type"`
	Game       game.GameType `json:"game"`
	Amount     uint64        `json:"amount"`
	Prediction uint8         `json:"prediction"`
	IsOver     bool          `json:"is_over"`
	Limit      int           `json:"limit"`
}

// wagerFeedHandler streams settled wagers. A client connected with a
// player query may also place bets over the socket.
func (s *FiberServer) wagerFeedHandler(conn *websocket.Conn) {
	rawPlayer := conn.Query("player", "")
	label := rawPlayer
	if label == "" {
		label = "anonymous"
	}

	log.Printf("[WS] New connection from player: %s", label)

	client := s.hub.RegisterClient(conn, label)
	ctx := context.Background()

	if recent, err := s.manager.RecentWagers(ctx, 0, nil); err == nil {
		client.SendRecentWagers(recent)
	}

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for player %s: %v", label, err)
			s.hub.UnregisterClient(conn)
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var req wsRequest
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}

		switch req.Type {
		case "ping":
			client.Send(game.WSMessage{Type: "pong"})

		case "recent":
			recent, err := s.manager.RecentWagers(ctx, req.Limit, nil)
			if err != nil {
				client.Send(game.WSMessage{Type: "error", Data: err.Error()})
				continue
			}
			client.SendRecentWagers(recent)

		case "play":
			player, err := account.ParseIdentity(rawPlayer)
			if err != nil {
				client.Send(game.WSMessage{Type: "error", Data: "connect with ?player=<address> to play"})
				continue
			}
			resp, err := s.play(ctx, player, s.wsPlay(req))
			if err != nil {
				resp = game.WagerResponse{Success: false, Message: err.Error()}
			}
			client.Send(game.WSMessage{Type: "wager_result", Data: resp})

		default:
			client.Send(game.WSMessage{Type: "error", Data: "unknown message type " + strconv.Quote(req.Type)})
		}
	}
}

func (s *FiberServer) wsPlay(req wsRequest) playFunc {
	return func(ctx context.Context, player account.Identity) (*game.WagerOutcome, error) {
		switch req.Game {
		case game.GameTypeCoinFlip:
			return s.manager.PlayCoinFlip(ctx, player, req.Amount, req.Prediction)
		case game.GameTypeDice:
			return s.manager.PlayDiceRoll(ctx, player, req.Amount, req.Prediction, req.IsOver)
		case game.GameTypeSlots:
			return s.manager.PlaySlots(ctx, player, req.Amount)
		default:
			return nil, game.ErrUnknownGame
		}
	}
}
