// Package ledger implements the user ledger instruction processor.
//
// The processor is the state machine over user account records:
// initialize, update, transfer, and deactivate. Each handler composes
// address derivation (pkg/pda), the authorization guard, and the account
// store (pkg/userstore), and enforces the domain invariants: bounded name,
// positive age, positive amount, sufficient balance, and active-status
// gating. Handlers are strictly sequential and atomic; a failed check
// aborts the instruction with zero observable partial state.
package ledger

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fortiblox/userledger/internal/types"
	"github.com/fortiblox/userledger/pkg/pda"
	"github.com/fortiblox/userledger/pkg/userstore"
)

// Config holds processor configuration.
type Config struct {
	// Store is the account record store. Required.
	Store userstore.Store

	// Events receives transfer events. Optional; nil disables emission.
	Events EventEmitter

	// Now supplies creation and event timestamps (unix seconds).
	// Defaults to time.Now().Unix.
	Now func() int64

	// Log records per-instruction log lines. Optional.
	Log func(msg string)
}

// Processor executes ledger instructions against the account store.
// Instructions are serialized by an internal mutex, so the two-account
// transfer is indivisible relative to any other instruction.
type Processor struct {
	store  userstore.Store
	events EventEmitter
	now    func() int64
	log    func(msg string)

	mu sync.Mutex
}

// NewProcessor creates a processor from the given configuration.
func NewProcessor(cfg Config) *Processor {
	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	logf := cfg.Log
	if logf == nil {
		logf = func(string) {}
	}
	return &Processor{
		store:  cfg.Store,
		events: cfg.Events,
		now:    now,
		log:    logf,
	}
}

// validateName checks the bounded-name invariant.
func validateName(name string) error {
	if len(name) > userstore.MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

// validateAge checks the positive-age invariant.
func validateAge(age uint8) error {
	if age == 0 {
		return ErrInvalidAge
	}
	return nil
}

// InitializeUser creates a new user account record at the given address.
//
// The address must match the derivation of the authority under the "user"
// namespace; a mismatch fails with ErrAddressMismatch before any write.
// Creating twice at the same derived address fails with
// userstore.ErrAccountExists, enforced by the store's create-if-absent
// semantics rather than re-validated here.
func (p *Processor) InitializeUser(address, authority types.Pubkey, name string, age uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateName(name); err != nil {
		return err
	}
	if err := validateAge(age); err != nil {
		return err
	}

	expected, _, err := pda.DeriveUserAddress(authority)
	if err != nil {
		return err
	}
	if !address.Equals(expected) {
		return ErrAddressMismatch
	}

	record := &userstore.UserAccount{
		Authority: authority,
		Name:      name,
		Age:       age,
		Balance:   0,
		IsActive:  true,
		CreatedAt: p.now(),
	}

	if err := p.store.CreateAccount(address, record); err != nil {
		return err
	}

	p.log(fmt.Sprintf("User account initialized: %s", record.Name))
	return nil
}

// UpdateUser updates the name and/or age of an existing record.
// Each optional field is validated independently; absent fields are left
// untouched. Balance and activity status are never affected.
func (p *Processor) UpdateUser(address, signer types.Pubkey, newName *string, newAge *uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.store.GetAccount(address)
	if err != nil {
		return err
	}

	if err := Authorize(record, signer, address); err != nil {
		return err
	}

	if newName != nil {
		if err := validateName(*newName); err != nil {
			return err
		}
		record.Name = *newName
	}

	if newAge != nil {
		if err := validateAge(*newAge); err != nil {
			return err
		}
		record.Age = *newAge
	}

	if err := p.store.PutAccount(address, record); err != nil {
		return err
	}

	p.log("User account updated successfully")
	return nil
}

// TransferTokens moves amount from the sender record to the receiver record.
//
// The signer must authorize the sender; the receiver is verified only by
// address binding against its own recorded authority, since the receiver
// does not sign. Checks run in a fixed order with the first failure
// winning: positive amount, sufficient balance, sender active, receiver
// active. Both balance updates use checked arithmetic and are written in
// one atomic store transaction, so no partially-applied transfer is ever
// observable. On success a TransferEvent is emitted; an emitter failure is
// reported to the caller but does not undo the already-committed transfer.
func (p *Processor) TransferTokens(senderAddr, receiverAddr, signer types.Pubkey, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sender, err := p.store.GetAccount(senderAddr)
	if err != nil {
		return err
	}

	// A self-transfer aliases both sides to one record so the debit and
	// credit compose instead of overwriting each other.
	receiver := sender
	if !receiverAddr.Equals(senderAddr) {
		receiver, err = p.store.GetAccount(receiverAddr)
		if err != nil {
			return err
		}
	}

	if err := Authorize(sender, signer, senderAddr); err != nil {
		return err
	}
	if err := verifyReceiverAddress(receiver, receiverAddr); err != nil {
		return err
	}

	if amount == 0 {
		return ErrInvalidAmount
	}
	if sender.Balance < amount {
		return ErrInsufficientFunds
	}
	if !sender.IsActive {
		return ErrAccountInactive
	}
	if !receiver.IsActive {
		return ErrAccountInactive
	}

	newSenderBalance, err := checkedSub(sender.Balance, amount)
	if err != nil {
		return err
	}
	sender.Balance = newSenderBalance

	newReceiverBalance, err := checkedAdd(receiver.Balance, amount)
	if err != nil {
		return err
	}
	receiver.Balance = newReceiverBalance

	err = p.store.PutAccounts([]userstore.AccountEntry{
		{Address: senderAddr, Account: sender},
		{Address: receiverAddr, Account: receiver},
	})
	if err != nil {
		return err
	}

	p.log(fmt.Sprintf("Transferred %d tokens successfully", amount))

	if p.events != nil {
		event := TransferEvent{
			From:      sender.Authority,
			To:        receiver.Authority,
			Amount:    amount,
			Timestamp: p.now(),
		}
		if err := p.events.Emit(event); err != nil {
			return fmt.Errorf("emit transfer event: %w", err)
		}
	}

	return nil
}

// DeactivateUser marks a record inactive. The transition is one-way: no
// handler transitions out of the inactive state.
func (p *Processor) DeactivateUser(address, signer types.Pubkey) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.store.GetAccount(address)
	if err != nil {
		return err
	}

	if err := Authorize(record, signer, address); err != nil {
		return err
	}

	if !record.IsActive {
		return ErrAccountAlreadyInactive
	}

	record.IsActive = false

	if err := p.store.PutAccount(address, record); err != nil {
		return err
	}

	p.log(fmt.Sprintf("User account deactivated: %s", record.Authority))
	return nil
}

// checkedSub subtracts b from a, failing with ErrMathOverflow on underflow.
func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrMathOverflow
	}
	return a - b, nil
}

// checkedAdd adds a and b, failing with ErrMathOverflow on overflow.
func checkedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}
