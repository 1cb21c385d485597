package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"casino/internal/account"
	"casino/internal/ledger"
)

const sol = 1_000_000_000

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []WagerOutcome
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, o WagerOutcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, o)
	return n.err
}

type testCasino struct {
	manager   *Manager
	store     *ledger.MemoryStore
	notifier  *recordingNotifier
	authority account.Identity
	seed      uint64
}

// newTestCasino initializes a casino whose vault holds vaultFunds and whose
// public seed is fixed at zero, so outcomes follow the player's key bytes.
func newTestCasino(t *testing.T, vaultFunds uint64) *testCasino {
	t.Helper()
	ctx := context.Background()

	tc := &testCasino{
		store:     ledger.NewMemoryStore(),
		notifier:  &recordingNotifier{},
		authority: identityWith(0xAD, 0x31, 0x17),
	}
	seeds := SeedFunc(func(ctx context.Context) (uint64, error) { return tc.seed, nil })

	m, err := NewManager(tc.store, seeds, tc.notifier, account.MustParseIdentity(account.DefaultProgramID))
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	tc.manager = m

	if _, err := m.Initialize(ctx, tc.authority); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if vaultFunds > 0 {
		if _, err := m.Airdrop(ctx, tc.authority, vaultFunds); err != nil {
			t.Fatalf("Airdrop() error: %v", err)
		}
		if err := m.FundVault(ctx, tc.authority, vaultFunds); err != nil {
			t.Fatalf("FundVault() error: %v", err)
		}
	}
	return tc
}

func (tc *testCasino) player(t *testing.T, funds uint64, prefix ...byte) account.Identity {
	t.Helper()
	p := identityWith(prefix...)
	if funds > 0 {
		if _, err := tc.manager.Airdrop(context.Background(), p, funds); err != nil {
			t.Fatalf("Airdrop() error: %v", err)
		}
	}
	return p
}

func (tc *testCasino) balance(t *testing.T, id account.Identity) uint64 {
	t.Helper()
	b, err := tc.store.Balance(context.Background(), id)
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	return b
}

func (tc *testCasino) casino(t *testing.T) *Casino {
	t.Helper()
	c, err := tc.manager.Casino(context.Background())
	if err != nil {
		t.Fatalf("Casino() error: %v", err)
	}
	return c
}

// assertUnchanged checks that a rejected operation moved nothing.
func (tc *testCasino) assertUnchanged(t *testing.T, player account.Identity, playerBal, vaultBal uint64, before *Casino) {
	t.Helper()
	if got := tc.balance(t, player); got != playerBal {
		t.Errorf("player balance = %d, want %d", got, playerBal)
	}
	if got := tc.balance(t, tc.manager.VaultAddress()); got != vaultBal {
		t.Errorf("vault balance = %d, want %d", got, vaultBal)
	}
	if after := tc.casino(t); *after != *before {
		t.Errorf("casino record changed: %+v -> %+v", *before, *after)
	}
}

func TestManager_Initialize(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 0)

	c := tc.casino(t)
	if c.Authority != tc.authority || c.HouseEdge != 250 || c.MinBet != DefaultMinBet || c.MaxBet != DefaultMaxBet {
		t.Errorf("record = %+v, want defaults bound to authority", *c)
	}

	t.Run("second initialize is rejected and keeps the record", func(t *testing.T) {
		tc.seed = 0
		p := tc.player(t, sol, 1)
		if _, err := tc.manager.PlayCoinFlip(ctx, p, DefaultMinBet, 0); err != nil {
			t.Fatalf("PlayCoinFlip() error: %v", err)
		}
		before := tc.casino(t)

		other := identityWith(0xEE)
		_, err := tc.manager.Initialize(ctx, other)
		if !errors.Is(err, ErrAlreadyInitialized) {
			t.Fatalf("Initialize() error = %v, want ErrAlreadyInitialized", err)
		}
		if after := tc.casino(t); *after != *before {
			t.Errorf("record changed on re-initialize: %+v -> %+v", *before, *after)
		}
	})

	t.Run("empty authority rejected", func(t *testing.T) {
		m, _ := NewManager(ledger.NewMemoryStore(), SeedFunc(func(context.Context) (uint64, error) { return 0, nil }), nil, account.MustParseIdentity(account.DefaultProgramID))
		if _, err := m.Initialize(ctx, account.Identity{}); !errors.Is(err, account.ErrInvalidIdentity) {
			t.Errorf("Initialize() error = %v, want ErrInvalidIdentity", err)
		}
	})
}

func TestManager_NotInitialized(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	m, err := NewManager(store, SeedFunc(func(context.Context) (uint64, error) { return 0, nil }), nil, account.MustParseIdentity(account.DefaultProgramID))
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	player := identityWith(1)
	store.Deposit(ctx, player, sol)

	if _, err := m.PlaySlots(ctx, player, DefaultMinBet); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("PlaySlots() error = %v, want ErrNotInitialized", err)
	}
	if _, err := m.Casino(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Casino() error = %v, want ErrNotInitialized", err)
	}
	if bal, _ := store.Balance(ctx, player); bal != sol {
		t.Errorf("player balance = %d, want %d", bal, sol)
	}
}

func TestManager_PlayCoinFlip(t *testing.T) {
	ctx := context.Background()

	t.Run("win pays 1.95x from the vault", func(t *testing.T) {
		tc := newTestCasino(t, 50*sol)
		player := tc.player(t, 5*sol, 0x00) // seed 0 ^ 0 -> heads

		o, err := tc.manager.PlayCoinFlip(ctx, player, sol, CoinHeads)
		if err != nil {
			t.Fatalf("PlayCoinFlip() error: %v", err)
		}
		if !o.Won || o.Result != 0 || o.Payout != 1_950_000_000 {
			t.Errorf("outcome = %+v, want heads win paying 1.95 SOL", *o)
		}
		if got := tc.balance(t, player); got != 5*sol-sol+1_950_000_000 {
			t.Errorf("player balance = %d", got)
		}
		if got := tc.balance(t, tc.manager.VaultAddress()); got != 50*sol+sol-1_950_000_000 {
			t.Errorf("vault balance = %d", got)
		}
		c := tc.casino(t)
		if c.TotalWagered != sol || c.TotalPayout != 1_950_000_000 {
			t.Errorf("totals = (%d, %d), want (%d, 1950000000)", c.TotalWagered, c.TotalPayout, uint64(sol))
		}
	})

	t.Run("loss keeps the stake and leaves total payout alone", func(t *testing.T) {
		tc := newTestCasino(t, 50*sol)
		player := tc.player(t, 5*sol, 0x00)

		o, err := tc.manager.PlayCoinFlip(ctx, player, sol, CoinTails)
		if err != nil {
			t.Fatalf("PlayCoinFlip() error: %v", err)
		}
		if o.Won || o.Payout != 0 {
			t.Errorf("outcome = %+v, want loss", *o)
		}
		c := tc.casino(t)
		if c.TotalWagered != sol || c.TotalPayout != 0 {
			t.Errorf("totals = (%d, %d), want (%d, 0)", c.TotalWagered, c.TotalPayout, uint64(sol))
		}
		if got := tc.balance(t, tc.manager.VaultAddress()); got != 51*sol {
			t.Errorf("vault balance = %d, want %d", got, uint64(51*sol))
		}
	})

	t.Run("same seed and player reproduce the result", func(t *testing.T) {
		tc := newTestCasino(t, 50*sol)
		tc.seed = 987654321
		player := tc.player(t, 5*sol, 0x5B)

		first, err := tc.manager.PlayCoinFlip(ctx, player, DefaultMinBet, 0)
		if err != nil {
			t.Fatalf("PlayCoinFlip() error: %v", err)
		}
		second, err := tc.manager.PlayCoinFlip(ctx, player, DefaultMinBet, 0)
		if err != nil {
			t.Fatalf("PlayCoinFlip() error: %v", err)
		}
		want := uint16(CoinFlipOutcome(tc.seed, player))
		if first.Result != second.Result || first.Result != want {
			t.Errorf("results %d, %d differ from derivation %d", first.Result, second.Result, want)
		}
	})
}

func TestManager_BetBounds(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 50*sol)
	player := tc.player(t, 20*sol, 0x00)

	t.Run("exact bounds accepted", func(t *testing.T) {
		// Tails loses against seed 0 ^ 0, so the vault never pays out here.
		if _, err := tc.manager.PlayCoinFlip(ctx, player, DefaultMinBet, CoinTails); err != nil {
			t.Errorf("min bet rejected: %v", err)
		}
		if _, err := tc.manager.PlayCoinFlip(ctx, player, DefaultMaxBet, CoinTails); err != nil {
			t.Errorf("max bet rejected: %v", err)
		}
	})

	tests := []struct {
		name    string
		play    func() error
		wantErr error
	}{
		{"coin one below min", func() error {
			_, err := tc.manager.PlayCoinFlip(ctx, player, DefaultMinBet-1, 0)
			return err
		}, ErrBetTooLow},
		{"coin one above max", func() error {
			_, err := tc.manager.PlayCoinFlip(ctx, player, DefaultMaxBet+1, 0)
			return err
		}, ErrBetTooHigh},
		{"coin prediction 2", func() error {
			_, err := tc.manager.PlayCoinFlip(ctx, player, DefaultMinBet, 2)
			return err
		}, ErrInvalidPrediction},
		{"dice one below min", func() error {
			_, err := tc.manager.PlayDiceRoll(ctx, player, DefaultMinBet-1, 3, true)
			return err
		}, ErrInvalidBetAmount},
		{"dice prediction 0", func() error {
			_, err := tc.manager.PlayDiceRoll(ctx, player, DefaultMinBet, 0, true)
			return err
		}, ErrInvalidPrediction},
		{"dice prediction 7", func() error {
			_, err := tc.manager.PlayDiceRoll(ctx, player, DefaultMinBet, 7, false)
			return err
		}, ErrInvalidPrediction},
		{"dice over 6", func() error {
			_, err := tc.manager.PlayDiceRoll(ctx, player, DefaultMinBet, 6, true)
			return err
		}, ErrInvalidPrediction},
		{"slots one above max", func() error {
			_, err := tc.manager.PlaySlots(ctx, player, DefaultMaxBet+1)
			return err
		}, ErrInvalidBetAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			playerBal := tc.balance(t, player)
			vaultBal := tc.balance(t, tc.manager.VaultAddress())
			before := tc.casino(t)
			notified := len(tc.notifier.outcomes)

			if err := tt.play(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			tc.assertUnchanged(t, player, playerBal, vaultBal, before)
			if len(tc.notifier.outcomes) != notified {
				t.Error("rejected bet should not be notified")
			}
		})
	}
}

func TestManager_PlayDiceRoll(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 50*sol)
	player := tc.player(t, 5*sol, 0x03) // seed 0 ^ 3 -> roll 4

	o, err := tc.manager.PlayDiceRoll(ctx, player, sol, 3, true)
	if err != nil {
		t.Fatalf("PlayDiceRoll() error: %v", err)
	}
	if o.Result != 4 || !o.Won || o.Payout != 1_900_000_000 || o.MultiplierPercent != 190 {
		t.Errorf("outcome = %+v, want roll 4 over 3 paying 1.9 SOL", *o)
	}

	o, err = tc.manager.PlayDiceRoll(ctx, player, sol, 4, true)
	if err != nil {
		t.Fatalf("PlayDiceRoll() error: %v", err)
	}
	if o.Won || o.Payout != 0 {
		t.Errorf("roll 4 over 4 should lose, got %+v", *o)
	}

	c := tc.casino(t)
	if c.TotalWagered != 2*sol || c.TotalPayout != 1_900_000_000 {
		t.Errorf("totals = (%d, %d)", c.TotalWagered, c.TotalPayout)
	}
}

func TestManager_PlaySlots(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 50*sol)

	tests := []struct {
		name       string
		prefix     []byte
		wantMult   uint64
		wantResult uint16
	}{
		{"jackpot", []byte{7, 7, 7}, 25, 777},
		{"triple", []byte{3, 3, 3}, 10, 333},
		{"pair", []byte{4, 4, 9}, 2, 449},
		{"nothing", []byte{1, 2, 3}, 0, 123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := tc.player(t, sol, tt.prefix...)
			bet := uint64(100_000_000)

			o, err := tc.manager.PlaySlots(ctx, player, bet)
			if err != nil {
				t.Fatalf("PlaySlots() error: %v", err)
			}
			if o.Result != tt.wantResult || o.Payout != bet*tt.wantMult || o.Won != (tt.wantMult > 0) {
				t.Errorf("outcome = %+v, want result %d paying %dx", *o, tt.wantResult, tt.wantMult)
			}
			if o.Prediction != 0 || len(o.Reels) != 3 {
				t.Errorf("slots outcome should carry prediction 0 and three reels, got %+v", *o)
			}
		})
	}
}

func TestManager_UnderfundedVaultRollsBackStake(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 0)
	player := tc.player(t, 5*sol, 7, 7, 7)

	before := tc.casino(t)
	_, err := tc.manager.PlaySlots(ctx, player, sol) // jackpot owes 25 SOL, vault holds 1
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("PlaySlots() error = %v, want ErrInsufficientFunds", err)
	}
	tc.assertUnchanged(t, player, 5*sol, 0, before)

	wagers, _ := tc.manager.RecentWagers(ctx, 10, nil)
	if len(wagers) != 0 {
		t.Errorf("failed bet recorded in history: %+v", wagers)
	}
	if len(tc.notifier.outcomes) != 0 {
		t.Error("failed bet should not be notified")
	}
}

func TestManager_InsufficientPlayerFunds(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 50*sol)
	player := tc.player(t, DefaultMinBet-1, 0x00)

	before := tc.casino(t)
	_, err := tc.manager.PlayCoinFlip(ctx, player, DefaultMinBet, 0)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("PlayCoinFlip() error = %v, want ErrInsufficientFunds", err)
	}
	tc.assertUnchanged(t, player, DefaultMinBet-1, 50*sol, before)
}

func TestManager_SeedFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 50*sol)
	player := tc.player(t, sol, 0x00)
	tc.manager.seeds = SeedFunc(func(context.Context) (uint64, error) {
		return 0, errors.New("slot unavailable")
	})

	before := tc.casino(t)
	if _, err := tc.manager.PlayCoinFlip(ctx, player, DefaultMinBet, 0); err == nil {
		t.Fatal("PlayCoinFlip() should fail when the seed cannot be read")
	}
	tc.assertUnchanged(t, player, sol, 50*sol, before)
}

func TestManager_FundVault(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 10*sol)
	vault := tc.manager.VaultAddress()

	t.Run("non-authority rejected", func(t *testing.T) {
		stranger := tc.player(t, 5*sol, 0x42)
		before := tc.casino(t)
		if err := tc.manager.FundVault(ctx, stranger, sol); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("FundVault() error = %v, want ErrUnauthorized", err)
		}
		tc.assertUnchanged(t, stranger, 5*sol, 10*sol, before)
	})

	t.Run("authority adds exactly the amount", func(t *testing.T) {
		tc.manager.Airdrop(ctx, tc.authority, 3*sol)
		before := tc.casino(t)

		if err := tc.manager.FundVault(ctx, tc.authority, 3*sol); err != nil {
			t.Fatalf("FundVault() error: %v", err)
		}
		if got := tc.balance(t, vault); got != 13*sol {
			t.Errorf("vault balance = %d, want %d", got, uint64(13*sol))
		}
		if after := tc.casino(t); *after != *before {
			t.Errorf("record changed by funding: %+v -> %+v", *before, *after)
		}
	})

	t.Run("authority without funds", func(t *testing.T) {
		if err := tc.manager.FundVault(ctx, tc.authority, sol); !errors.Is(err, ledger.ErrInsufficientFunds) {
			t.Errorf("FundVault() error = %v, want ErrInsufficientFunds", err)
		}
	})
}

func TestManager_NotificationFailureKeepsBet(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 50*sol)
	tc.notifier.err = errors.New("sink down")
	player := tc.player(t, 5*sol, 0x00)

	o, err := tc.manager.PlayCoinFlip(ctx, player, sol, CoinHeads)
	if err != nil {
		t.Fatalf("PlayCoinFlip() error = %v, notification failures must not fail the bet", err)
	}
	if len(tc.notifier.outcomes) != 1 || tc.notifier.outcomes[0].ID != o.ID {
		t.Errorf("notifier received %+v", tc.notifier.outcomes)
	}
	if c := tc.casino(t); c.TotalWagered != sol {
		t.Errorf("TotalWagered = %d, want %d", c.TotalWagered, uint64(sol))
	}
}

func TestManager_RecentWagers(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 50*sol)
	alice := tc.player(t, 5*sol, 7, 7, 7)
	bob := tc.player(t, 5*sol, 0x00)

	tc.manager.PlaySlots(ctx, alice, DefaultMinBet)
	tc.manager.PlayCoinFlip(ctx, bob, DefaultMinBet, 1)
	tc.manager.PlayDiceRoll(ctx, bob, DefaultMinBet, 2, false)

	all, err := tc.manager.RecentWagers(ctx, 0, nil)
	if err != nil {
		t.Fatalf("RecentWagers() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("RecentWagers() returned %d, want 3", len(all))
	}
	if all[0].GameType != GameTypeDice || all[2].GameType != GameTypeSlots {
		t.Errorf("wagers not newest first: %v, %v", all[0].GameType, all[2].GameType)
	}
	if all[2].MultiplierPercent != 2500 || len(all[2].Reels) != 3 || all[2].Reels[0] != 7 {
		t.Errorf("slots history = %+v, want jackpot reels", all[2])
	}

	mine, _ := tc.manager.RecentWagers(ctx, 10, &alice)
	if len(mine) != 1 || mine[0].Player != alice {
		t.Errorf("player filter = %+v", mine)
	}
}

func TestManager_ConcurrentBets(t *testing.T) {
	ctx := context.Background()
	tc := newTestCasino(t, 100*sol)

	const players = 20
	const betsEach = 5
	ids := make([]account.Identity, players)
	for i := range ids {
		ids[i] = tc.player(t, sol, byte(i), byte(i*3), byte(i*7))
	}

	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(p account.Identity, n int) {
			defer wg.Done()
			for j := 0; j < betsEach; j++ {
				switch (n + j) % 3 {
				case 0:
					tc.manager.PlayCoinFlip(ctx, p, DefaultMinBet, uint8(j%2))
				case 1:
					tc.manager.PlayDiceRoll(ctx, p, DefaultMinBet, 3, j%2 == 0)
				default:
					tc.manager.PlaySlots(ctx, p, DefaultMinBet)
				}
			}
		}(ids[i], i)
	}
	wg.Wait()

	c := tc.casino(t)
	if c.TotalWagered != players*betsEach*DefaultMinBet {
		t.Errorf("TotalWagered = %d, want %d", c.TotalWagered, uint64(players*betsEach*DefaultMinBet))
	}

	var held uint64
	for _, p := range ids {
		held += tc.balance(t, p)
	}
	vault := tc.balance(t, tc.manager.VaultAddress())
	if held+vault != players*sol+100*sol {
		t.Errorf("funds not conserved: players %d + vault %d", held, vault)
	}
	if vault != 100*sol+c.TotalWagered-c.TotalPayout {
		t.Errorf("vault %d out of sync with totals (wagered %d, paid %d)", vault, c.TotalWagered, c.TotalPayout)
	}
}
