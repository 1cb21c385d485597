package game

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"casino/internal/account"
)

const (
	DefaultHouseEdge uint16 = 250            // basis points, 2.5%
	DefaultMinBet    uint64 = 10_000_000     // 0.01 SOL
	DefaultMaxBet    uint64 = 10_000_000_000 // 10 SOL

	// CasinoRecordSize is the fixed on-ledger payload:
	// authority(32) + vault bump(1) + total_wagered(8) + total_payout(8) +
	// house_edge(2) + min_bet(8) + max_bet(8).
	CasinoRecordSize = 32 + 1 + 8 + 8 + 2 + 8 + 8
)

// Casino is the configuration record. Bounds and house edge are fixed at
// initialization; only the coordinator advances the totals.
type Casino struct {
	Authority    account.Identity `json:"authority"`
	VaultBump    uint8            `json:"vault_bump"`
	TotalWagered uint64           `json:"total_wagered"`
	TotalPayout  uint64           `json:"total_payout"`
	HouseEdge    uint16           `json:"house_edge"`
	MinBet       uint64           `json:"min_bet"`
	MaxBet       uint64           `json:"max_bet"`
}

func NewCasino(authority account.Identity, vaultBump uint8) *Casino {
	return &Casino{
		Authority: authority,
		VaultBump: vaultBump,
		HouseEdge: DefaultHouseEdge,
		MinBet:    DefaultMinBet,
		MaxBet:    DefaultMaxBet,
	}
}

// recordWager advances both counters or neither.
func (c *Casino) recordWager(bet, payout uint64) error {
	wagered, carry := bits.Add64(c.TotalWagered, bet, 0)
	if carry != 0 {
		return fmt.Errorf("%w: total_wagered", ErrTotalsOverflow)
	}
	paid, carry := bits.Add64(c.TotalPayout, payout, 0)
	if carry != 0 {
		return fmt.Errorf("%w: total_payout", ErrTotalsOverflow)
	}
	c.TotalWagered = wagered
	c.TotalPayout = paid
	return nil
}

// MarshalBinary encodes the record little-endian in field order.
func (c *Casino) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, CasinoRecordSize)
	buf = append(buf, c.Authority[:]...)
	buf = append(buf, c.VaultBump)
	buf = binary.LittleEndian.AppendUint64(buf, c.TotalWagered)
	buf = binary.LittleEndian.AppendUint64(buf, c.TotalPayout)
	buf = binary.LittleEndian.AppendUint16(buf, c.HouseEdge)
	buf = binary.LittleEndian.AppendUint64(buf, c.MinBet)
	buf = binary.LittleEndian.AppendUint64(buf, c.MaxBet)
	return buf, nil
}

func (c *Casino) UnmarshalBinary(data []byte) error {
	if len(data) != CasinoRecordSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidRecord, len(data), CasinoRecordSize)
	}

	var rec Casino
	copy(rec.Authority[:], data[:32])
	rec.VaultBump = data[32]
	rec.TotalWagered = binary.LittleEndian.Uint64(data[33:41])
	rec.TotalPayout = binary.LittleEndian.Uint64(data[41:49])
	rec.HouseEdge = binary.LittleEndian.Uint16(data[49:51])
	rec.MinBet = binary.LittleEndian.Uint64(data[51:59])
	rec.MaxBet = binary.LittleEndian.Uint64(data[59:67])

	if rec.MinBet > rec.MaxBet {
		return fmt.Errorf("%w: min_bet %d > max_bet %d", ErrInvalidRecord, rec.MinBet, rec.MaxBet)
	}
	if rec.HouseEdge > 10_000 {
		return fmt.Errorf("%w: house_edge %d exceeds 10000 bps", ErrInvalidRecord, rec.HouseEdge)
	}

	*c = rec
	return nil
}
