package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
)

// Keys shared by every API instance.
const (
	SlotKey      = "casino:slot"
	WagerChannel = "casino:wagers"
)

// Service is the shared Redis connection behind the slot counter and the
// cross-instance wager feed.
type Service interface {
	GetClient() *redis.Client
	Health() map[string]string
	Close() error
}

// Config holds the REDIS_* settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

func ConfigFromEnv() Config {
	return Config{
		Addr:     getEnv("REDIS_URL", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
}

type service struct {
	client *redis.Client
}

var cacheInstance *service

// New returns the process-wide connection, or nil when Redis is not
// reachable. Callers fall back to the slot clock and the local hub.
func New() Service {
	if cacheInstance != nil {
		return cacheInstance
	}

	s, err := connect(ConfigFromEnv())
	if err != nil {
		log.Printf("[CACHE] %v", err)
		log.Println("[CACHE] Running without Redis, seeds fall back to the slot clock")
		return nil
	}
	cacheInstance = s
	return cacheInstance
}

// Connect dials cfg without touching the process-wide connection.
func Connect(cfg Config) (Service, error) {
	s, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func connect(cfg Config) (*service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Addr, err)
	}

	log.Printf("[CACHE] Connected to Redis at %s (db %d)", cfg.Addr, cfg.DB)
	return &service{client: client}, nil
}

func (s *service) GetClient() *redis.Client {
	return s.client
}

// Health reports reachability plus the current slot and how many
// instances are listening on the wager channel.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.client.Ping(ctx).Err(); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("redis down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "Redis is healthy"

	slot, err := s.client.Get(ctx, SlotKey).Uint64()
	switch {
	case errors.Is(err, redis.Nil):
		stats["slot"] = "0"
	case err != nil:
		stats["slot_error"] = err.Error()
	default:
		stats["slot"] = strconv.FormatUint(slot, 10)
	}

	subs, err := s.client.PubSubNumSub(ctx, WagerChannel).Result()
	if err != nil {
		stats["feed_error"] = err.Error()
	} else {
		stats["feed_subscribers"] = strconv.FormatInt(subs[WagerChannel], 10)
	}

	pool := s.client.PoolStats()
	stats["total_conns"] = strconv.FormatUint(uint64(pool.TotalConns), 10)
	stats["idle_conns"] = strconv.FormatUint(uint64(pool.IdleConns), 10)
	stats["timeouts"] = strconv.FormatUint(uint64(pool.Timeouts), 10)

	return stats
}

func (s *service) Close() error {
	log.Println("[CACHE] Disconnecting from Redis")
	if cacheInstance == s {
		cacheInstance = nil
	}
	return s.client.Close()
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
