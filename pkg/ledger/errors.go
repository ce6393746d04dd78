package ledger

import "fmt"

// Error codes for the closed domain error set. The numbering continues the
// on-chain program's error space, which starts custom errors at 6000.
const (
	CodeNameTooLong            = 6000
	CodeInvalidAge             = 6001
	CodeInvalidAmount          = 6002
	CodeInsufficientFunds      = 6003
	CodeAccountInactive        = 6004
	CodeAccountAlreadyInactive = 6005
	CodeMathOverflow           = 6006
	CodeOwnershipMismatch      = 6007
	CodeAddressMismatch        = 6008
)

// Error is a domain error with a stable identifying code.
// Domain errors are never retried or suppressed; each one aborts the
// triggering instruction with no partial effect.
type Error struct {
	Code    uint32
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ledger error %d: %s", e.Code, e.Message)
}

// Domain errors.
var (
	// ErrNameTooLong is returned when a name exceeds the 32-character bound.
	ErrNameTooLong = &Error{CodeNameTooLong, "Name is too long. Maximum 32 characters allowed."}

	// ErrInvalidAge is returned when an age of zero is supplied.
	ErrInvalidAge = &Error{CodeInvalidAge, "Invalid age provided. Age must be greater than 0."}

	// ErrInvalidAmount is returned when a transfer amount of zero is supplied.
	ErrInvalidAmount = &Error{CodeInvalidAmount, "Invalid transfer amount. Amount must be greater than 0."}

	// ErrInsufficientFunds is returned when the sender balance cannot cover a transfer.
	ErrInsufficientFunds = &Error{CodeInsufficientFunds, "Insufficient funds for this operation."}

	// ErrAccountInactive is returned when a transfer touches an inactive account.
	ErrAccountInactive = &Error{CodeAccountInactive, "Account is not active."}

	// ErrAccountAlreadyInactive is returned when deactivating an inactive account.
	ErrAccountAlreadyInactive = &Error{CodeAccountAlreadyInactive, "Account is already inactive."}

	// ErrMathOverflow is returned when checked arithmetic would wrap.
	ErrMathOverflow = &Error{CodeMathOverflow, "Mathematical operation resulted in overflow."}

	// ErrOwnershipMismatch is returned when the signer is not the record's authority.
	ErrOwnershipMismatch = &Error{CodeOwnershipMismatch, "Signer does not match the account authority."}

	// ErrAddressMismatch is returned when a supplied address does not match
	// the deterministic derivation.
	ErrAddressMismatch = &Error{CodeAddressMismatch, "Account address does not match the expected derivation."}
)
