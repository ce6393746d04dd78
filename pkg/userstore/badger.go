package userstore

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/fortiblox/userledger/internal/types"
)

// Key prefixes for BadgerDB storage.
// Using prefixes allows efficient iteration over specific data types.
var (
	// prefixAccount is the prefix for account records.
	// Key format: prefixAccount + address (32 bytes)
	prefixAccount = []byte{0x01}

	// prefixMeta is the prefix for metadata.
	prefixMeta = []byte{0x02}

	// metaAccountsCount is the key for the persisted record count.
	metaAccountsCount = append(prefixMeta, []byte("count")...)
)

// BadgerConfig contains configuration for the BadgerDB-backed store.
type BadgerConfig struct {
	// Path is the directory path for the database.
	Path string

	// InMemory runs the database in memory (for testing).
	InMemory bool

	// SyncWrites ensures writes are synced to disk.
	// Setting to false improves performance but risks data loss on crash.
	SyncWrites bool

	// NumCompactors is the number of compaction workers.
	NumCompactors int

	// Logger is an optional logger. Set to nil to disable logging.
	Logger badger.Logger
}

// DefaultBadgerConfig returns default configuration.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:          path,
		InMemory:      false,
		SyncWrites:    true,
		NumCompactors: 4,
		Logger:        nil,
	}
}

// BadgerStore is a BadgerDB-backed implementation of Store.
//
// Records are stored under their 32-byte derived address with a one-byte
// prefix. Serialization is the fixed AccountSize layout from record.go, so
// every value in the account keyspace has identical length. The record
// count is cached in memory and persisted under a metadata key on close.
type BadgerStore struct {
	db *badger.DB

	// accountsCount is cached in memory
	accountsCount atomic.Uint64

	// mu serializes writers so existence checks and writes stay consistent
	mu sync.Mutex

	closed atomic.Bool
}

// NewBadgerStore opens a BadgerDB-backed store.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumCompactors(cfg.NumCompactors).
		WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &BadgerStore{db: db}

	if err := s.loadCount(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	return s, nil
}

// loadCount loads the persisted record count.
func (s *BadgerStore) loadCount() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaAccountsCount)
		if err == badger.ErrKeyNotFound {
			s.accountsCount.Store(0)
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) >= 8 {
				s.accountsCount.Store(binary.LittleEndian.Uint64(val))
			}
			return nil
		})
	})
}

// accountKey returns the BadgerDB key for an address.
func accountKey(address types.Pubkey) []byte {
	key := make([]byte, 1+types.PubkeySize)
	key[0] = prefixAccount[0]
	copy(key[1:], address[:])
	return key
}

// CreateAccount stores a new record, failing if the address is occupied.
// The existence check and write happen in a single transaction, which is
// what enforces the one-time-initialization invariant.
func (s *BadgerStore) CreateAccount(address types.Pubkey, account *UserAccount) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(accountKey(address))
		if err == nil {
			return ErrAccountExists
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(accountKey(address), account.Serialize())
	})
	if err != nil {
		return err
	}

	s.accountsCount.Add(1)
	return nil
}

// GetAccount retrieves a record by address.
func (s *BadgerStore) GetAccount(address types.Pubkey) (*UserAccount, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var account *UserAccount

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(address))
		if err == badger.ErrKeyNotFound {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			acc, err := DeserializeUserAccount(val)
			if err != nil {
				return err
			}
			account = acc
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// PutAccount overwrites an existing record.
func (s *BadgerStore) PutAccount(address types.Pubkey, account *UserAccount) error {
	return s.PutAccounts([]AccountEntry{{Address: address, Account: account}})
}

// PutAccounts overwrites multiple existing records in one transaction.
// Either every entry is written or none is.
func (s *BadgerStore) PutAccounts(entries []AccountEntry) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		for _, e := range entries {
			if _, err := txn.Get(accountKey(e.Address)); err == badger.ErrKeyNotFound {
				return ErrAccountNotFound
			} else if err != nil {
				return err
			}
		}
		for _, e := range entries {
			if err := txn.Set(accountKey(e.Address), e.Account.Serialize()); err != nil {
				return err
			}
		}
		return nil
	})
}

// HasAccount checks if a record exists.
func (s *BadgerStore) HasAccount(address types.Pubkey) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}

	var exists bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(accountKey(address))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// AccountsCount returns the total number of records.
func (s *BadgerStore) AccountsCount() (uint64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return s.accountsCount.Load(), nil
}

// IterateAccounts visits all records in ascending address order.
func (s *BadgerStore) IterateAccounts(fn func(address types.Pubkey, account *UserAccount) error) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixAccount
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()

			if len(key) != 1+types.PubkeySize {
				continue
			}
			var address types.Pubkey
			copy(address[:], key[1:])

			err := item.Value(func(val []byte) error {
				account, err := DeserializeUserAccount(val)
				if err != nil {
					return err
				}
				return fn(address, account)
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// Close persists metadata and closes the database.
func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, s.accountsCount.Load())
		return txn.Set(metaAccountsCount, buf)
	})
	if err != nil {
		s.db.Close()
		return err
	}

	return s.db.Close()
}

// Verify that BadgerStore implements Store.
var _ Store = (*BadgerStore)(nil)
