package account

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "program id", input: DefaultProgramID},
		{name: "system program", input: "11111111111111111111111111111111"},
		{name: "not base58", input: "0OIl", wantErr: true},
		{name: "too short", input: "3yZe7d", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseIdentity(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIdentity) {
					t.Fatalf("ParseIdentity(%q) error = %v, want ErrInvalidIdentity", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIdentity(%q) unexpected error: %v", tt.input, err)
			}
			if id.String() != tt.input {
				t.Errorf("String() = %s, want %s", id.String(), tt.input)
			}
		})
	}
}

func TestIdentity_JSON(t *testing.T) {
	id, err := NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity() error: %v", err)
	}

	data, err := json.Marshal(struct {
		Player Identity `json:"player"`
	}{id})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Player Identity `json:"player"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Player != id {
		t.Errorf("round trip = %s, want %s", decoded.Player, id)
	}
}

func TestIdentity_IsZero(t *testing.T) {
	var zero Identity
	if !zero.IsZero() {
		t.Error("zero identity should report IsZero")
	}
	if MustParseIdentity(DefaultProgramID).IsZero() {
		t.Error("program id should not report IsZero")
	}
}

func TestFindAddress(t *testing.T) {
	programID := MustParseIdentity(DefaultProgramID)

	t.Run("deterministic", func(t *testing.T) {
		a1, b1, err := FindAddress(programID, VaultSeed)
		if err != nil {
			t.Fatalf("FindAddress() error: %v", err)
		}
		a2, b2, _ := FindAddress(programID, VaultSeed)
		if a1 != a2 || b1 != b2 {
			t.Error("FindAddress() should be deterministic")
		}
	})

	t.Run("seeds yield distinct addresses", func(t *testing.T) {
		vault, _, _ := FindAddress(programID, VaultSeed)
		casino, _, _ := FindAddress(programID, CasinoSeed)
		if vault == casino {
			t.Error("vault and casino addresses should differ")
		}
	})

	t.Run("found bump re-derives the address", func(t *testing.T) {
		addr, bump, err := FindAddress(programID, VaultSeed)
		if err != nil {
			t.Fatalf("FindAddress() error: %v", err)
		}
		again, err := CreateAddress(programID, VaultSeed, bump)
		if err != nil {
			t.Fatalf("CreateAddress() error: %v", err)
		}
		if again != addr {
			t.Errorf("CreateAddress() = %s, want %s", again, addr)
		}
	})
}

func TestProof_Verify(t *testing.T) {
	programID := MustParseIdentity(DefaultProgramID)
	vault, bump, err := FindAddress(programID, VaultSeed)
	if err != nil {
		t.Fatalf("FindAddress() error: %v", err)
	}
	other, _ := NewIdentity()

	tests := []struct {
		name  string
		proof Proof
		addr  Identity
		want  bool
	}{
		{"matching proof", Proof{ProgramID: programID, Seed: VaultSeed, Bump: bump}, vault, true},
		{"wrong address", Proof{ProgramID: programID, Seed: VaultSeed, Bump: bump}, other, false},
		{"wrong seed", Proof{ProgramID: programID, Seed: CasinoSeed, Bump: bump}, vault, false},
		{"wrong program", Proof{ProgramID: other, Seed: VaultSeed, Bump: bump}, vault, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.proof.Verify(tt.addr); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkFindAddress(b *testing.B) {
	programID := MustParseIdentity(DefaultProgramID)
	for i := 0; i < b.N; i++ {
		FindAddress(programID, VaultSeed)
	}
}
