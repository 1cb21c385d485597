// Package account provides the 32-byte identities used by the ledger and the
// deterministic derivation of program-owned addresses (the casino record and
// its vault).
package account

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	IdentitySize = 32

	CasinoSeed = "casino"
	VaultSeed  = "vault"

	// DefaultProgramID is the namespace the casino and vault addresses are
	// derived under when CASINO_PROGRAM_ID is not set.
	DefaultProgramID = "8zD2fbTQHQRkdQrNs1f7Sd1ApZaUqN5c9GGZ6tSSy62M"

	derivedAddressMarker = "ProgramDerivedAddress"
)

var (
	ErrInvalidIdentity = errors.New("invalid identity")
	ErrOnCurve         = errors.New("derived address lies on the ed25519 curve")
	ErrNoViableBump    = errors.New("no viable bump seed")
)

// Identity is a public key naming a balance holder.
type Identity [IdentitySize]byte

// ParseIdentity decodes a base58 encoded 32-byte identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if len(raw) != IdentitySize {
		return id, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIdentity, len(raw), IdentitySize)
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseIdentity is ParseIdentity for constants. It panics on bad input.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewIdentity returns a random identity. Used for throwaway player accounts.
func NewIdentity() (Identity, error) {
	var id Identity
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("generate identity: %w", err)
	}
	return id, nil
}

func (id Identity) String() string {
	return base58.Encode(id[:])
}

func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Proof authorizes transfers out of a derived address without a signature.
// It is valid for an address only if re-deriving it from the same program,
// seed and bump yields that address.
type Proof struct {
	ProgramID Identity
	Seed      string
	Bump      uint8
}

// Verify reports whether the proof derives addr.
func (p Proof) Verify(addr Identity) bool {
	derived, err := CreateAddress(p.ProgramID, p.Seed, p.Bump)
	if err != nil {
		return false
	}
	return derived == addr
}

// CreateAddress hashes seed, bump and program ID into an address. Addresses
// that decode to a valid curve point could have a private key and are
// rejected with ErrOnCurve.
func CreateAddress(programID Identity, seed string, bump uint8) (Identity, error) {
	h := sha256.New()
	h.Write([]byte(seed))
	h.Write([]byte{bump})
	h.Write(programID[:])
	h.Write([]byte(derivedAddressMarker))

	var addr Identity
	copy(addr[:], h.Sum(nil))

	if _, err := new(edwards25519.Point).SetBytes(addr[:]); err == nil {
		return Identity{}, ErrOnCurve
	}
	return addr, nil
}

// FindAddress searches bumps from 255 downward and returns the first
// off-curve address together with its bump.
func FindAddress(programID Identity, seed string) (Identity, uint8, error) {
	for bump := 255; bump > 0; bump-- {
		addr, err := CreateAddress(programID, seed, uint8(bump))
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	return Identity{}, 0, fmt.Errorf("%w for seed %q", ErrNoViableBump, seed)
}
