package ledger

import (
	"github.com/fortiblox/userledger/internal/types"
	"github.com/fortiblox/userledger/pkg/pda"
	"github.com/fortiblox/userledger/pkg/userstore"
)

// Authorize verifies that a mutation request is allowed to touch a record.
// Two independent checks, both required:
//
//  1. The signer must equal the record's recorded authority.
//  2. The supplied address must equal the deterministic derivation of the
//     record's authority under the "user" namespace.
//
// No mutation is visible unless both checks pass. The guard runs before
// every update, deactivate, and the sender side of every transfer.
func Authorize(record *userstore.UserAccount, signer types.Pubkey, supplied types.Pubkey) error {
	if !record.Authority.Equals(signer) {
		return ErrOwnershipMismatch
	}

	expected, _, err := pda.DeriveUserAddress(record.Authority)
	if err != nil {
		return err
	}
	if !supplied.Equals(expected) {
		return ErrAddressMismatch
	}

	return nil
}

// verifyReceiverAddress checks that a receiver address matches the
// derivation of the receiver record's own authority. The receiver does not
// sign a transfer, so only address binding is checked, not ownership.
func verifyReceiverAddress(record *userstore.UserAccount, supplied types.Pubkey) error {
	expected, _, err := pda.DeriveUserAddress(record.Authority)
	if err != nil {
		return err
	}
	if !supplied.Equals(expected) {
		return ErrAddressMismatch
	}
	return nil
}
