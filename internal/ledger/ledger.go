// Package ledger is the value-transfer and account-data layer the casino runs
// on. A Store groups transfers, record writes and wager history into
// all-or-nothing units.
package ledger

import (
	"context"
	"errors"
	"time"

	"casino/internal/account"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrUnauthorizedTransfer = errors.New("transfer not authorized by source")
	ErrRecordNotFound       = errors.New("record not found")
	ErrRecordExists         = errors.New("record already exists")
	ErrBalanceOverflow      = errors.New("balance overflow")
	ErrAmountOutOfRange     = errors.New("amount out of range for storage")
)

// Authorization is what a transfer presents on behalf of its source: either
// the source's own signature or a derived-address proof.
type Authorization struct {
	Signer account.Identity
	Proof  *account.Proof
}

func SignedBy(id account.Identity) Authorization {
	return Authorization{Signer: id}
}

func ProvenBy(p account.Proof) Authorization {
	return Authorization{Proof: &p}
}

// Permits reports whether the authorization may move funds out of from.
func (a Authorization) Permits(from account.Identity) bool {
	if !a.Signer.IsZero() && a.Signer == from {
		return true
	}
	return a.Proof != nil && a.Proof.Verify(from)
}

// Wager is one settled bet as kept in history.
type Wager struct {
	ID         string
	Player     account.Identity
	GameType   uint8
	BetAmount  uint64
	Prediction uint8
	IsOver     bool
	Result     uint16
	Won        bool
	Payout     uint64
	Seed       uint64
	CreatedAt  time.Time
}

// Tx is the view of the ledger inside one atomic unit. Nothing written
// through a Tx is visible outside it until the unit commits.
type Tx interface {
	// Record returns the data stored at addr, locking it for the rest of the
	// unit. Missing records yield ErrRecordNotFound.
	Record(ctx context.Context, addr account.Identity) ([]byte, error)
	CreateRecord(ctx context.Context, addr account.Identity, data []byte) error
	UpdateRecord(ctx context.Context, addr account.Identity, data []byte) error

	Balance(ctx context.Context, id account.Identity) (uint64, error)
	// Transfer moves amount from one balance to another. It either moves the
	// whole amount or nothing.
	Transfer(ctx context.Context, from, to account.Identity, amount uint64, auth Authorization) error

	AppendWager(ctx context.Context, w Wager) error
}

// Store is a ledger backend.
type Store interface {
	// Atomically runs fn in a single unit. If fn returns an error every
	// effect made through tx is discarded.
	Atomically(ctx context.Context, fn func(tx Tx) error) error

	Record(ctx context.Context, addr account.Identity) ([]byte, error)
	Balance(ctx context.Context, id account.Identity) (uint64, error)
	// Deposit credits a balance from outside the ledger (faucet/provisioning).
	Deposit(ctx context.Context, id account.Identity, amount uint64) (uint64, error)
	// RecentWagers lists history newest first. A nil player lists everyone.
	RecentWagers(ctx context.Context, limit int, player *account.Identity) ([]Wager, error)
}
