package ledger

import (
	"context"
	"fmt"
	"log"
	"math/bits"
	"sync"

	"casino/internal/account"
)

// MemoryStore keeps the ledger in process. Units are serialized by a single
// mutex and undone from a journal when they fail.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[account.Identity]uint64
	records  map[account.Identity][]byte
	wagers   []Wager
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[account.Identity]uint64),
		records:  make(map[account.Identity][]byte),
	}
}

func (s *MemoryStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) Record(ctx context.Context, addr account.Identity) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(addr)
}

func (s *MemoryStore) Balance(ctx context.Context, id account.Identity) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[id], nil
}

func (s *MemoryStore) Deposit(ctx context.Context, id account.Identity, amount uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, carry := bits.Add64(s.balances[id], amount, 0)
	if carry != 0 {
		return 0, fmt.Errorf("deposit to %s: %w", id, ErrBalanceOverflow)
	}
	s.balances[id] = sum
	log.Printf("[LEDGER] Deposited %d to %s (balance %d)", amount, id, sum)
	return sum, nil
}

func (s *MemoryStore) RecentWagers(ctx context.Context, limit int, player *account.Identity) ([]Wager, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Wager, 0, limit)
	for i := len(s.wagers) - 1; i >= 0 && len(out) < limit; i-- {
		w := s.wagers[i]
		if player != nil && w.Player != *player {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *MemoryStore) record(addr account.Identity) ([]byte, error) {
	data, ok := s.records[addr]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", addr, ErrRecordNotFound)
	}
	return append([]byte(nil), data...), nil
}

type memoryTx struct {
	store   *MemoryStore
	journal []func()
}

func (tx *memoryTx) rollback() {
	for i := len(tx.journal) - 1; i >= 0; i-- {
		tx.journal[i]()
	}
	tx.journal = nil
}

func (tx *memoryTx) Record(ctx context.Context, addr account.Identity) ([]byte, error) {
	return tx.store.record(addr)
}

func (tx *memoryTx) CreateRecord(ctx context.Context, addr account.Identity, data []byte) error {
	if _, ok := tx.store.records[addr]; ok {
		return fmt.Errorf("record %s: %w", addr, ErrRecordExists)
	}
	tx.store.records[addr] = append([]byte(nil), data...)
	tx.journal = append(tx.journal, func() { delete(tx.store.records, addr) })
	return nil
}

func (tx *memoryTx) UpdateRecord(ctx context.Context, addr account.Identity, data []byte) error {
	prev, ok := tx.store.records[addr]
	if !ok {
		return fmt.Errorf("record %s: %w", addr, ErrRecordNotFound)
	}
	tx.store.records[addr] = append([]byte(nil), data...)
	tx.journal = append(tx.journal, func() { tx.store.records[addr] = prev })
	return nil
}

func (tx *memoryTx) Balance(ctx context.Context, id account.Identity) (uint64, error) {
	return tx.store.balances[id], nil
}

func (tx *memoryTx) Transfer(ctx context.Context, from, to account.Identity, amount uint64, auth Authorization) error {
	if !auth.Permits(from) {
		return fmt.Errorf("transfer from %s: %w", from, ErrUnauthorizedTransfer)
	}

	balances := tx.store.balances
	fromBal, toBal := balances[from], balances[to]
	if fromBal < amount {
		return fmt.Errorf("transfer %d from %s (balance %d): %w", amount, from, fromBal, ErrInsufficientFunds)
	}
	if from == to {
		return nil
	}
	credited, carry := bits.Add64(toBal, amount, 0)
	if carry != 0 {
		return fmt.Errorf("transfer %d to %s: %w", amount, to, ErrBalanceOverflow)
	}

	balances[from] = fromBal - amount
	balances[to] = credited
	tx.journal = append(tx.journal, func() {
		balances[from] = fromBal
		balances[to] = toBal
	})
	return nil
}

func (tx *memoryTx) AppendWager(ctx context.Context, w Wager) error {
	tx.store.wagers = append(tx.store.wagers, w)
	n := len(tx.store.wagers) - 1
	tx.journal = append(tx.journal, func() { tx.store.wagers = tx.store.wagers[:n] })
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memoryTx)(nil)
)
