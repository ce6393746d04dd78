package userstore

import (
	"github.com/zeebo/blake3"

	"github.com/fortiblox/userledger/internal/types"
)

// ComputeRecordHash computes the BLAKE3 hash of a single record:
// blake3(address || serialized record).
func ComputeRecordHash(address types.Pubkey, account *UserAccount) types.Hash {
	h := blake3.New()
	h.Write(address[:])
	h.Write(account.Serialize())

	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ComputeStateHash computes a deterministic hash over the entire store:
// BLAKE3 of every record hash in ascending address order. Two stores with
// identical contents produce identical state hashes, which is how snapshot
// import verifies integrity.
func ComputeStateHash(store Store) (types.Hash, error) {
	h := blake3.New()

	err := store.IterateAccounts(func(address types.Pubkey, account *UserAccount) error {
		rh := ComputeRecordHash(address, account)
		h.Write(rh[:])
		return nil
	})
	if err != nil {
		return types.Hash{}, err
	}

	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}
