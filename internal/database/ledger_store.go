package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"casino/internal/account"
	"casino/internal/ledger"
)

// numeric_value_out_of_range
const pgOutOfRange = "22003"

// LedgerStore keeps balances, program records and wager history in
// PostgreSQL. Each unit is one database transaction; the record read inside
// a unit holds a row lock until commit, which serializes bets across
// instances.
type LedgerStore struct {
	pool *pgxpool.Pool
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

func (s *LedgerStore) Atomically(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgLedgerTx{tx: tx})
	})
}

func (s *LedgerStore) Record(ctx context.Context, addr account.Identity) ([]byte, error) {
	return readRecord(ctx, s.pool, addr, false)
}

func (s *LedgerStore) Balance(ctx context.Context, id account.Identity) (uint64, error) {
	return readBalance(ctx, s.pool, id)
}

func (s *LedgerStore) Deposit(ctx context.Context, id account.Identity, amount uint64) (uint64, error) {
	stored, err := toStored(amount)
	if err != nil {
		return 0, err
	}

	const query = `
		INSERT INTO accounts (address, lamports) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE
			SET lamports = accounts.lamports + EXCLUDED.lamports, updated_at = NOW()
		RETURNING lamports`

	var balance int64
	if err := s.pool.QueryRow(ctx, query, id.String(), stored).Scan(&balance); err != nil {
		return 0, mapWriteError(fmt.Sprintf("deposit to %s", id), err)
	}
	log.Printf("[LEDGER] Deposited %d to %s (balance %d)", amount, id, balance)
	return uint64(balance), nil
}

func (s *LedgerStore) RecentWagers(ctx context.Context, limit int, player *account.Identity) ([]ledger.Wager, error) {
	if limit <= 0 {
		return nil, nil
	}

	const cols = `id, player, game_type, bet_amount, prediction, is_over, result, won, payout, seed, created_at`
	var (
		rows pgx.Rows
		err  error
	)
	if player != nil {
		rows, err = s.pool.Query(ctx,
			`SELECT `+cols+` FROM wagers WHERE player = $1 ORDER BY seq DESC LIMIT $2`,
			player.String(), limit)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+cols+` FROM wagers ORDER BY seq DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: list wagers: %w", err)
	}
	defer rows.Close()

	var out []ledger.Wager
	for rows.Next() {
		var (
			w                           ledger.Wager
			id                          uuid.UUID
			playerAddr                  string
			gameType, prediction        int16
			result                      int32
			betAmount, payout, seedBits int64
		)
		if err := rows.Scan(&id, &playerAddr, &gameType, &betAmount, &prediction,
			&w.IsOver, &result, &w.Won, &payout, &seedBits, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan wager: %w", err)
		}
		if w.Player, err = account.ParseIdentity(playerAddr); err != nil {
			return nil, fmt.Errorf("postgres: wager %s: %w", id, err)
		}
		w.ID = id.String()
		w.GameType = uint8(gameType)
		w.BetAmount = uint64(betAmount)
		w.Prediction = uint8(prediction)
		w.Result = uint16(result)
		w.Payout = uint64(payout)
		w.Seed = uint64(seedBits)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list wagers: %w", err)
	}
	return out, nil
}

type pgLedgerTx struct {
	tx pgx.Tx
}

func (t *pgLedgerTx) Record(ctx context.Context, addr account.Identity) ([]byte, error) {
	return readRecord(ctx, t.tx, addr, true)
}

func (t *pgLedgerTx) CreateRecord(ctx context.Context, addr account.Identity, data []byte) error {
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO records (address, data) VALUES ($1, $2) ON CONFLICT (address) DO NOTHING`,
		addr.String(), data)
	if err != nil {
		return fmt.Errorf("postgres: create record %s: %w", addr, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", addr, ledger.ErrRecordExists)
	}
	return nil
}

func (t *pgLedgerTx) UpdateRecord(ctx context.Context, addr account.Identity, data []byte) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE records SET data = $2, updated_at = NOW() WHERE address = $1`,
		addr.String(), data)
	if err != nil {
		return fmt.Errorf("postgres: update record %s: %w", addr, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", addr, ledger.ErrRecordNotFound)
	}
	return nil
}

func (t *pgLedgerTx) Balance(ctx context.Context, id account.Identity) (uint64, error) {
	return readBalance(ctx, t.tx, id)
}

func (t *pgLedgerTx) Transfer(ctx context.Context, from, to account.Identity, amount uint64, auth ledger.Authorization) error {
	if !auth.Permits(from) {
		return fmt.Errorf("transfer from %s: %w", from, ledger.ErrUnauthorizedTransfer)
	}
	stored, err := toStored(amount)
	if err != nil {
		return err
	}

	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET lamports = lamports - $2, updated_at = NOW()
		 WHERE address = $1 AND lamports >= $2`,
		from.String(), stored)
	if err != nil {
		return fmt.Errorf("postgres: debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		if amount == 0 {
			return nil
		}
		return fmt.Errorf("transfer %d from %s: %w", amount, from, ledger.ErrInsufficientFunds)
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO accounts (address, lamports) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE
			SET lamports = accounts.lamports + EXCLUDED.lamports, updated_at = NOW()`,
		to.String(), stored)
	if err != nil {
		return mapWriteError(fmt.Sprintf("transfer %d to %s", amount, to), err)
	}
	return nil
}

func (t *pgLedgerTx) AppendWager(ctx context.Context, w ledger.Wager) error {
	bet, err := toStored(w.BetAmount)
	if err != nil {
		return err
	}
	payout, err := toStored(w.Payout)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return fmt.Errorf("postgres: wager id %q: %w", w.ID, err)
	}

	const query = `
		INSERT INTO wagers (
			id, player, game_type, bet_amount, prediction, is_over,
			result, won, payout, seed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = t.tx.Exec(ctx, query,
		id, w.Player.String(), int16(w.GameType), bet, int16(w.Prediction), w.IsOver,
		int32(w.Result), w.Won, payout, int64(w.Seed), w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append wager %s: %w", w.ID, err)
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func readRecord(ctx context.Context, q querier, addr account.Identity, lock bool) ([]byte, error) {
	query := `SELECT data FROM records WHERE address = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var data []byte
	if err := q.QueryRow(ctx, query, addr.String()).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", addr, ledger.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("postgres: read record %s: %w", addr, err)
	}
	return data, nil
}

func readBalance(ctx context.Context, q querier, id account.Identity) (uint64, error) {
	var lamports int64
	err := q.QueryRow(ctx, `SELECT lamports FROM accounts WHERE address = $1`, id.String()).Scan(&lamports)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: read balance %s: %w", id, err)
	}
	return uint64(lamports), nil
}

func toStored(amount uint64) (int64, error) {
	if amount > math.MaxInt64 {
		return 0, fmt.Errorf("%d lamports: %w", amount, ledger.ErrAmountOutOfRange)
	}
	return int64(amount), nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgOutOfRange {
		return fmt.Errorf("%s: %w", op, ledger.ErrBalanceOverflow)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

var (
	_ ledger.Store = (*LedgerStore)(nil)
	_ ledger.Tx    = (*pgLedgerTx)(nil)
)
