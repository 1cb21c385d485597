package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"casino/internal/account"
	"casino/internal/ledger"
)

const (
	DefaultRecentWagers = 20
	MaxRecentWagers     = 200
)

// Manager coordinates every operation against the casino record and vault.
// Operations are serialized by mu; each runs inside one ledger unit so a
// failure at any step leaves balances and totals untouched.
type Manager struct {
	store    ledger.Store
	seeds    SeedSource
	notifier Notifier
	factory  *GameFactory

	programID  account.Identity
	casinoAddr account.Identity
	vaultAddr  account.Identity
	vaultBump  uint8

	mu  sync.Mutex
	now func() time.Time
}

// NewManager derives the casino and vault addresses under programID.
func NewManager(store ledger.Store, seeds SeedSource, notifier Notifier, programID account.Identity) (*Manager, error) {
	casinoAddr, _, err := account.FindAddress(programID, account.CasinoSeed)
	if err != nil {
		return nil, fmt.Errorf("derive casino address: %w", err)
	}
	vaultAddr, vaultBump, err := account.FindAddress(programID, account.VaultSeed)
	if err != nil {
		return nil, fmt.Errorf("derive vault address: %w", err)
	}

	return &Manager{
		store:      store,
		seeds:      seeds,
		notifier:   notifier,
		factory:    NewDefaultGameFactory(),
		programID:  programID,
		casinoAddr: casinoAddr,
		vaultAddr:  vaultAddr,
		vaultBump:  vaultBump,
		now:        time.Now,
	}, nil
}

func (m *Manager) CasinoAddress() account.Identity { return m.casinoAddr }
func (m *Manager) VaultAddress() account.Identity  { return m.vaultAddr }

// Initialize creates the casino record with default bounds and binds
// authority to it. A second call fails and leaves the record as it was.
func (m *Manager) Initialize(ctx context.Context, authority account.Identity) (*Casino, error) {
	if authority.IsZero() {
		return nil, fmt.Errorf("%w: empty authority", account.ErrInvalidIdentity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := NewCasino(authority, m.vaultBump)
	data, err := c.MarshalBinary()
	if err != nil {
		return nil, err
	}

	err = m.store.Atomically(ctx, func(tx ledger.Tx) error {
		if err := tx.CreateRecord(ctx, m.casinoAddr, data); err != nil {
			if errors.Is(err, ledger.ErrRecordExists) {
				return ErrAlreadyInitialized
			}
			return fmt.Errorf("create casino record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CASINO] Initialized by %s (vault %s, bump %d)", authority, m.vaultAddr, m.vaultBump)
	return c, nil
}

// FundVault moves amount from the authority into the vault. Nothing else
// about the record changes.
func (m *Manager) FundVault(ctx context.Context, authority account.Identity, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.store.Atomically(ctx, func(tx ledger.Tx) error {
		c, err := m.loadCasino(ctx, tx)
		if err != nil {
			return err
		}
		if c.Authority != authority {
			return ErrUnauthorized
		}
		if err := tx.Transfer(ctx, authority, m.vaultAddr, amount, ledger.SignedBy(authority)); err != nil {
			return fmt.Errorf("fund vault: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[CASINO] Vault funded with %s SOL by %s", FormatSOL(amount), authority)
	return nil
}

func (m *Manager) PlayCoinFlip(ctx context.Context, player account.Identity, amount uint64, prediction uint8) (*WagerOutcome, error) {
	return m.play(ctx, GameTypeCoinFlip, Wager{Player: player, Amount: amount, Prediction: prediction})
}

func (m *Manager) PlayDiceRoll(ctx context.Context, player account.Identity, amount uint64, prediction uint8, isOver bool) (*WagerOutcome, error) {
	return m.play(ctx, GameTypeDice, Wager{Player: player, Amount: amount, Prediction: prediction, IsOver: isOver})
}

func (m *Manager) PlaySlots(ctx context.Context, player account.Identity, amount uint64) (*WagerOutcome, error) {
	return m.play(ctx, GameTypeSlots, Wager{Player: player, Amount: amount})
}

// play runs one bet: validate, debit the stake, derive the outcome, credit
// any payout from the vault, advance the totals and record history, all in
// one ledger unit. The notification goes out only after the unit commits.
func (m *Manager) play(ctx context.Context, gameType GameType, w Wager) (*WagerOutcome, error) {
	engine, ok := m.factory.GetEngine(gameType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, gameType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var outcome WagerOutcome
	err := m.store.Atomically(ctx, func(tx ledger.Tx) error {
		c, err := m.loadCasino(ctx, tx)
		if err != nil {
			return err
		}
		if err := engine.Validate(c, w); err != nil {
			return err
		}

		if err := tx.Transfer(ctx, w.Player, m.vaultAddr, w.Amount, ledger.SignedBy(w.Player)); err != nil {
			return fmt.Errorf("debit stake: %w", err)
		}

		seed, err := m.seeds.CurrentSeed(ctx)
		if err != nil {
			return fmt.Errorf("read public seed: %w", err)
		}
		s, err := engine.Settle(seed, w)
		if err != nil {
			return err
		}

		if s.Won {
			proof := account.Proof{ProgramID: m.programID, Seed: account.VaultSeed, Bump: c.VaultBump}
			if err := tx.Transfer(ctx, m.vaultAddr, w.Player, s.Payout, ledger.ProvenBy(proof)); err != nil {
				return fmt.Errorf("credit payout: %w", err)
			}
		}

		if err := c.recordWager(w.Amount, s.Payout); err != nil {
			return err
		}
		if err := m.saveCasino(ctx, tx, c); err != nil {
			return err
		}

		outcome = WagerOutcome{
			ID:                uuid.NewString(),
			Player:            w.Player,
			GameType:          gameType,
			BetAmount:         w.Amount,
			Prediction:        w.Prediction,
			IsOver:            w.IsOver,
			Result:            s.Result,
			Reels:             reelsJSON(s.Reels),
			Won:               s.Won,
			MultiplierPercent: s.MultiplierPercent,
			Payout:            s.Payout,
			Seed:              seed,
			Timestamp:         m.now().Unix(),
		}
		return tx.AppendWager(ctx, outcome.record())
	})
	if err != nil {
		log.Printf("[CASINO] Rejected %s bet of %d from %s: %v", gameType, w.Amount, w.Player, err)
		return nil, err
	}

	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, outcome); err != nil {
			log.Printf("[CASINO] Notification for wager %s failed: %v", outcome.ID, err)
		}
	}
	return &outcome, nil
}

// Casino returns the current record.
func (m *Manager) Casino(ctx context.Context) (*Casino, error) {
	data, err := m.store.Record(ctx, m.casinoAddr)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	var c Casino
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Manager) Balance(ctx context.Context, id account.Identity) (uint64, error) {
	return m.store.Balance(ctx, id)
}

func (m *Manager) VaultBalance(ctx context.Context) (uint64, error) {
	return m.store.Balance(ctx, m.vaultAddr)
}

// Airdrop credits a player balance from outside the casino. It is the
// faucet used on test networks and does not touch the casino totals.
func (m *Manager) Airdrop(ctx context.Context, player account.Identity, amount uint64) (uint64, error) {
	return m.store.Deposit(ctx, player, amount)
}

// RecentWagers lists settled wagers newest first, optionally for one player.
func (m *Manager) RecentWagers(ctx context.Context, limit int, player *account.Identity) ([]WagerOutcome, error) {
	if limit <= 0 {
		limit = DefaultRecentWagers
	}
	if limit > MaxRecentWagers {
		limit = MaxRecentWagers
	}

	records, err := m.store.RecentWagers(ctx, limit, player)
	if err != nil {
		return nil, fmt.Errorf("list wagers: %w", err)
	}
	out := make([]WagerOutcome, 0, len(records))
	for _, r := range records {
		out = append(out, outcomeFromRecord(r))
	}
	return out, nil
}

func (m *Manager) loadCasino(ctx context.Context, tx ledger.Tx) (*Casino, error) {
	data, err := tx.Record(ctx, m.casinoAddr)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("load casino record: %w", err)
	}
	var c Casino
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Manager) saveCasino(ctx context.Context, tx ledger.Tx, c *Casino) error {
	data, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	if err := tx.UpdateRecord(ctx, m.casinoAddr, data); err != nil {
		return fmt.Errorf("save casino record: %w", err)
	}
	return nil
}
