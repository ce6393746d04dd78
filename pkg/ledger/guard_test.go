package ledger

import (
	"testing"

	"github.com/fortiblox/userledger/internal/types"
	"github.com/fortiblox/userledger/pkg/pda"
	"github.com/fortiblox/userledger/pkg/userstore"
)

func TestAuthorize(t *testing.T) {
	authority := types.Pubkey{0x31}
	addr, _, err := pda.DeriveUserAddress(authority)
	if err != nil {
		t.Fatalf("DeriveUserAddress failed: %v", err)
	}

	record := &userstore.UserAccount{
		Authority: authority,
		Name:      "Alice",
		Age:       30,
		IsActive:  true,
	}

	if err := Authorize(record, authority, addr); err != nil {
		t.Errorf("valid authorization failed: %v", err)
	}
}

func TestAuthorizeOwnershipMismatch(t *testing.T) {
	authority := types.Pubkey{0x32}
	addr, _, _ := pda.DeriveUserAddress(authority)

	record := &userstore.UserAccount{Authority: authority, Name: "Alice", Age: 30}

	if err := Authorize(record, types.Pubkey{0x33}, addr); err != ErrOwnershipMismatch {
		t.Errorf("expected ErrOwnershipMismatch, got %v", err)
	}
}

func TestAuthorizeAddressMismatch(t *testing.T) {
	authority := types.Pubkey{0x34}
	record := &userstore.UserAccount{Authority: authority, Name: "Alice", Age: 30}

	// An address derived for a different authority does not bind.
	wrongAddr, _, _ := pda.DeriveUserAddress(types.Pubkey{0x35})

	if err := Authorize(record, authority, wrongAddr); err != ErrAddressMismatch {
		t.Errorf("expected ErrAddressMismatch, got %v", err)
	}
}

func TestAuthorizeOwnershipCheckedFirst(t *testing.T) {
	// Both checks fail; the ownership check wins.
	record := &userstore.UserAccount{Authority: types.Pubkey{0x36}, Name: "Alice", Age: 30}

	if err := Authorize(record, types.Pubkey{0x37}, types.Pubkey{0x38}); err != ErrOwnershipMismatch {
		t.Errorf("expected ErrOwnershipMismatch, got %v", err)
	}
}

func TestVerifyReceiverAddress(t *testing.T) {
	authority := types.Pubkey{0x39}
	addr, _, _ := pda.DeriveUserAddress(authority)

	record := &userstore.UserAccount{Authority: authority, Name: "Bob", Age: 25}

	// Binds against the record's own authority, with no signer involved.
	if err := verifyReceiverAddress(record, addr); err != nil {
		t.Errorf("receiver address binding failed: %v", err)
	}

	if err := verifyReceiverAddress(record, types.Pubkey{0x3A}); err != ErrAddressMismatch {
		t.Errorf("expected ErrAddressMismatch, got %v", err)
	}
}
