// Package userstore implements storage for user ledger account records.
//
// The store is deliberately dumb: it creates records, reads them, and writes
// them back. Authorization and domain validation belong to the instruction
// processor, never to the store. The one policy the store does enforce is
// create-if-absent: a record can be created at a given address exactly once.
package userstore

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/fortiblox/userledger/internal/types"
)

// Store errors.
var (
	// ErrAccountNotFound is returned when a record doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when creating a record at an occupied address.
	ErrAccountExists = errors.New("account already exists")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store closed")

	// ErrInvalidRecord is returned when stored record data is malformed.
	ErrInvalidRecord = errors.New("invalid account record")

	// ErrBadDiscriminator is returned when record data carries the wrong
	// type discriminator.
	ErrBadDiscriminator = errors.New("bad account discriminator")
)

// Record layout constants.
const (
	// DiscriminatorLen is the width of the record type header.
	DiscriminatorLen = 8

	// MaxNameLen is the maximum name length in bytes.
	MaxNameLen = 32

	// AccountSize is the fixed serialized size of a UserAccount:
	// discriminator (8) + authority (32) + name (4 length + 32 content) +
	// age (1) + balance (8) + is_active (1) + created_at (8).
	AccountSize = DiscriminatorLen + 32 + (4 + MaxNameLen) + 1 + 8 + 1 + 8
)

// Discriminator is the fixed header written at the start of every serialized
// UserAccount: the first 8 bytes of SHA256("account:UserAccount"). It
// distinguishes user records from any other record type sharing the backend.
var Discriminator = computeDiscriminator()

func computeDiscriminator() [DiscriminatorLen]byte {
	sum := sha256.Sum256([]byte("account:UserAccount"))
	var d [DiscriminatorLen]byte
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

// UserAccount is the persistent per-user record.
//
// The Authority field is the owning identity and is immutable after
// creation. Balance only ever changes through the processor's checked
// arithmetic. Once IsActive goes false the record is terminal.
type UserAccount struct {
	// Authority is the identity that owns and may mutate this record.
	Authority types.Pubkey

	// Name is the display name, at most MaxNameLen bytes.
	Name string

	// Age must be greater than zero.
	Age uint8

	// Balance is the held value, modified only via checked arithmetic.
	Balance uint64

	// IsActive gates mutation. There is no reactivation path.
	IsActive bool

	// CreatedAt is the unix timestamp captured once at creation.
	CreatedAt int64
}

// Clone creates a deep copy of the record.
func (u *UserAccount) Clone() *UserAccount {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// Serialize encodes the record into its fixed AccountSize layout.
// Format: discriminator (8) + authority (32) + name_len (4) + name (32,
// zero-padded) + age (1) + balance (8) + is_active (1) + created_at (8),
// integers little-endian.
func (u *UserAccount) Serialize() []byte {
	buf := make([]byte, AccountSize)
	offset := 0

	copy(buf[offset:], Discriminator[:])
	offset += DiscriminatorLen

	copy(buf[offset:], u.Authority[:])
	offset += 32

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(u.Name)))
	offset += 4

	copy(buf[offset:], u.Name)
	offset += MaxNameLen

	buf[offset] = u.Age
	offset++

	binary.LittleEndian.PutUint64(buf[offset:], u.Balance)
	offset += 8

	if u.IsActive {
		buf[offset] = 1
	}
	offset++

	binary.LittleEndian.PutUint64(buf[offset:], uint64(u.CreatedAt))

	return buf
}

// DeserializeUserAccount decodes a record from its fixed layout.
func DeserializeUserAccount(data []byte) (*UserAccount, error) {
	if len(data) != AccountSize {
		return nil, ErrInvalidRecord
	}

	offset := 0

	var disc [DiscriminatorLen]byte
	copy(disc[:], data[offset:])
	if disc != Discriminator {
		return nil, ErrBadDiscriminator
	}
	offset += DiscriminatorLen

	var authority types.Pubkey
	copy(authority[:], data[offset:])
	offset += 32

	nameLen := binary.LittleEndian.Uint32(data[offset:])
	if nameLen > MaxNameLen {
		return nil, ErrInvalidRecord
	}
	offset += 4

	name := string(data[offset : offset+int(nameLen)])
	offset += MaxNameLen

	age := data[offset]
	offset++

	balance := binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	isActive := data[offset] != 0
	offset++

	createdAt := int64(binary.LittleEndian.Uint64(data[offset:]))

	return &UserAccount{
		Authority: authority,
		Name:      name,
		Age:       age,
		Balance:   balance,
		IsActive:  isActive,
		CreatedAt: createdAt,
	}, nil
}
