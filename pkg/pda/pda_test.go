package pda

import (
	"bytes"
	"testing"

	"github.com/fortiblox/userledger/internal/types"
)

func TestCreateProgramAddressDeterministic(t *testing.T) {
	seeds := [][]byte{[]byte("user"), bytes.Repeat([]byte{0x11}, 32), {255}}

	a, errA := CreateProgramAddress(seeds, types.ProgramID)
	b, errB := CreateProgramAddress(seeds, types.ProgramID)

	if (errA == nil) != (errB == nil) {
		t.Fatalf("inconsistent errors: %v vs %v", errA, errB)
	}
	if errA == nil && a != b {
		t.Errorf("same seeds produced different addresses: %v vs %v", a, b)
	}
}

func TestCreateProgramAddressSeedLimits(t *testing.T) {
	longSeed := bytes.Repeat([]byte{1}, MaxSeedLen+1)
	if _, err := CreateProgramAddress([][]byte{longSeed}, types.ProgramID); err != ErrMaxSeedLengthExceeded {
		t.Errorf("expected ErrMaxSeedLengthExceeded, got %v", err)
	}

	many := make([][]byte, MaxSeeds+1)
	for i := range many {
		many[i] = []byte{byte(i)}
	}
	if _, err := CreateProgramAddress(many, types.ProgramID); err != ErrMaxSeedsExceeded {
		t.Errorf("expected ErrMaxSeedsExceeded, got %v", err)
	}
}

func TestFindProgramAddress(t *testing.T) {
	var authority types.Pubkey
	authority[0] = 0x42

	addr, bump, err := FindProgramAddress([][]byte{UserSeed, authority[:]}, types.ProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress failed: %v", err)
	}

	// The bump that was found must reproduce the same address.
	recomputed, err := CreateProgramAddress(
		[][]byte{UserSeed, authority[:], {bump}}, types.ProgramID)
	if err != nil {
		t.Fatalf("CreateProgramAddress with found bump failed: %v", err)
	}
	if recomputed != addr {
		t.Errorf("bump does not reproduce address: got %v, want %v", recomputed, addr)
	}

	// Derived addresses must be off-curve.
	if isOnCurve(addr[:]) {
		t.Error("derived address lies on the ed25519 curve")
	}
}

func TestDeriveUserAddressPure(t *testing.T) {
	var authority types.Pubkey
	copy(authority[:], bytes.Repeat([]byte{0xAA}, 32))

	addr1, bump1, err := DeriveUserAddress(authority)
	if err != nil {
		t.Fatalf("DeriveUserAddress failed: %v", err)
	}
	addr2, bump2, err := DeriveUserAddress(authority)
	if err != nil {
		t.Fatalf("DeriveUserAddress failed: %v", err)
	}

	if addr1 != addr2 || bump1 != bump2 {
		t.Errorf("derivation not pure: (%v, %d) vs (%v, %d)", addr1, bump1, addr2, bump2)
	}
}

func TestDeriveUserAddressDistinctAuthorities(t *testing.T) {
	a := types.Pubkey{1}
	b := types.Pubkey{2}

	addrA, _, err := DeriveUserAddress(a)
	if err != nil {
		t.Fatalf("DeriveUserAddress failed: %v", err)
	}
	addrB, _, err := DeriveUserAddress(b)
	if err != nil {
		t.Fatalf("DeriveUserAddress failed: %v", err)
	}

	if addrA == addrB {
		t.Error("different authorities derived the same address")
	}
}

func TestIsOnCurveInvalidLength(t *testing.T) {
	if isOnCurve([]byte{1, 2, 3}) {
		t.Error("short input should not be on curve")
	}
}
