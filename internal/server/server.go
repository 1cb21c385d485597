package server

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"casino/internal/account"
	"casino/internal/cache"
	"casino/internal/database"
	"casino/internal/game"
	"casino/internal/ledger"
)

const (
	LedgerPostgres = "postgres"
	LedgerMemory   = "memory"
)

type FiberServer struct {
	*fiber.App

	db      database.Service
	cache   cache.Service
	manager *game.Manager
	hub     *game.Hub
	ledger  string
	cancel  context.CancelFunc
}

func New() *FiberServer {
	programID, err := account.ParseIdentity(getEnv("CASINO_PROGRAM_ID", account.DefaultProgramID))
	if err != nil {
		log.Fatalf("[SERVER] Invalid CASINO_PROGRAM_ID: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := game.NewHub()
	go hub.Run()

	// Ledger backend
	var (
		db    database.Service
		store ledger.Store
	)
	backend := getEnv("CASINO_LEDGER", LedgerPostgres)
	switch backend {
	case LedgerPostgres:
		if err := database.MigrateUp(getEnv("MIGRATIONS_PATH", "./migrations")); err != nil {
			log.Fatalf("[SERVER] Migrations failed: %v", err)
		}
		db = database.New()
		store = database.NewLedgerStore(db.Pool())
	case LedgerMemory:
		log.Println("[SERVER] Using in-memory ledger, balances are lost on restart")
		store = ledger.NewMemoryStore()
	default:
		log.Fatalf("[SERVER] Unknown CASINO_LEDGER %q", backend)
	}

	// Seeds and notifications go through Redis when it is up so every
	// instance shares one slot counter and one wager feed.
	notifier := game.Notifiers{game.LogNotifier{}}
	var seeds game.SeedSource
	redisService := cache.New()
	if redisService != nil {
		seeds = cache.NewSlotCounter(redisService)
		publisher := cache.NewWagerPublisher(redisService)
		notifier = append(notifier, publisher)
		go relayWagers(ctx, publisher, hub)
	} else {
		seeds = game.NewSlotClock(time.Now(), game.DefaultSlotDuration)
		notifier = append(notifier, hub)
	}

	manager, err := game.NewManager(store, seeds, notifier, programID)
	if err != nil {
		log.Fatalf("[SERVER] Failed to derive casino addresses: %v", err)
	}

	server := NewWithManager(manager, hub)
	server.db = db
	server.cache = redisService
	server.ledger = backend
	server.cancel = cancel

	log.Printf("[SERVER] Casino %s ready (vault %s, ledger %s)", manager.CasinoAddress(), manager.VaultAddress(), backend)
	return server
}

// NewWithManager wires the HTTP app around an existing manager and hub.
// Routes are registered separately.
func NewWithManager(manager *game.Manager, hub *game.Hub) *FiberServer {
	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "casino",
			AppName:       "casino",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		manager: manager,
		hub:     hub,
		ledger:  LedgerMemory,
	}

	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
		Expiration: 1 * time.Minute,
	}))

	return server
}

func relayWagers(ctx context.Context, publisher *cache.WagerPublisher, hub *game.Hub) {
	events, err := publisher.Subscribe(ctx)
	if err != nil {
		log.Printf("[SERVER] Wager feed unavailable: %v", err)
		return
	}
	for outcome := range events {
		if err := hub.Notify(ctx, outcome); err != nil {
			log.Printf("[WS] Dropped wager %s: %v", outcome.ID, err)
		}
	}
}

// Shutdown gracefully shuts down the server and game components
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] Shutting down...")

	if s.cancel != nil {
		s.cancel()
	}
	if s.hub != nil {
		s.hub.Stop()
	}

	// Close connections
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
