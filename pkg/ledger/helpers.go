package ledger

import "github.com/fortiblox/userledger/pkg/userstore"

// IsAccountValid reports whether a record is in a usable state: active,
// named, and with a valid age. Read-only; no handler depends on it.
func IsAccountValid(account *userstore.UserAccount) bool {
	return account.IsActive &&
		account.Name != "" &&
		account.Age > 0
}

// FeeRateBasisPoints is the divisor used by CalculateFee (1% fee).
const FeeRateBasisPoints = 100

// CalculateFee returns the fee for a transfer amount: amount / 100,
// truncating toward zero. No handler deducts this fee; it exists for
// hosts that want a quote.
func CalculateFee(amount uint64) uint64 {
	return amount / FeeRateBasisPoints
}
