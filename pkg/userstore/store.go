package userstore

import (
	"sort"

	"github.com/fortiblox/userledger/internal/types"
)

// AccountEntry pairs an address with its record.
type AccountEntry struct {
	Address types.Pubkey
	Account *UserAccount
}

// Store is the account storage interface.
// Implementations must be safe for concurrent read access.
type Store interface {
	// CreateAccount stores a new record at the given address.
	// Returns ErrAccountExists if the address is already occupied.
	CreateAccount(address types.Pubkey, account *UserAccount) error

	// GetAccount retrieves a record by address.
	// Returns ErrAccountNotFound if the record doesn't exist.
	GetAccount(address types.Pubkey) (*UserAccount, error)

	// PutAccount overwrites an existing record.
	// Returns ErrAccountNotFound if the record doesn't exist.
	PutAccount(address types.Pubkey, account *UserAccount) error

	// PutAccounts overwrites multiple existing records atomically:
	// either every entry is written or none is.
	PutAccounts(entries []AccountEntry) error

	// HasAccount checks if a record exists.
	HasAccount(address types.Pubkey) (bool, error)

	// AccountsCount returns the total number of records.
	AccountsCount() (uint64, error)

	// IterateAccounts visits all records in ascending address order.
	// Return an error from the callback to stop iteration.
	IterateAccounts(fn func(address types.Pubkey, account *UserAccount) error) error

	// Close closes the store.
	Close() error
}

// MemoryStore is an in-memory implementation of Store for testing and
// ephemeral hosts.
type MemoryStore struct {
	accounts map[types.Pubkey]*UserAccount
	closed   bool
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[types.Pubkey]*UserAccount),
	}
}

// CreateAccount stores a new record, failing if the address is occupied.
func (m *MemoryStore) CreateAccount(address types.Pubkey, account *UserAccount) error {
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.accounts[address]; ok {
		return ErrAccountExists
	}
	m.accounts[address] = account.Clone()
	return nil
}

// GetAccount retrieves a record.
func (m *MemoryStore) GetAccount(address types.Pubkey) (*UserAccount, error) {
	if m.closed {
		return nil, ErrClosed
	}
	acc, ok := m.accounts[address]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc.Clone(), nil
}

// PutAccount overwrites an existing record.
func (m *MemoryStore) PutAccount(address types.Pubkey, account *UserAccount) error {
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.accounts[address]; !ok {
		return ErrAccountNotFound
	}
	m.accounts[address] = account.Clone()
	return nil
}

// PutAccounts overwrites multiple existing records atomically.
func (m *MemoryStore) PutAccounts(entries []AccountEntry) error {
	if m.closed {
		return ErrClosed
	}
	for _, e := range entries {
		if _, ok := m.accounts[e.Address]; !ok {
			return ErrAccountNotFound
		}
	}
	for _, e := range entries {
		m.accounts[e.Address] = e.Account.Clone()
	}
	return nil
}

// HasAccount checks if a record exists.
func (m *MemoryStore) HasAccount(address types.Pubkey) (bool, error) {
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.accounts[address]
	return ok, nil
}

// AccountsCount returns the number of records.
func (m *MemoryStore) AccountsCount() (uint64, error) {
	if m.closed {
		return 0, ErrClosed
	}
	return uint64(len(m.accounts)), nil
}

// IterateAccounts visits all records in ascending address order.
func (m *MemoryStore) IterateAccounts(fn func(address types.Pubkey, account *UserAccount) error) error {
	if m.closed {
		return ErrClosed
	}

	addrs := make([]types.Pubkey, 0, len(m.accounts))
	for addr := range m.accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		for k := 0; k < types.PubkeySize; k++ {
			if addrs[i][k] != addrs[j][k] {
				return addrs[i][k] < addrs[j][k]
			}
		}
		return false
	})

	for _, addr := range addrs {
		if err := fn(addr, m.accounts[addr].Clone()); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the store.
func (m *MemoryStore) Close() error {
	m.closed = true
	m.accounts = nil
	return nil
}

// Verify that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
