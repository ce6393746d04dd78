// Package snapshot provides export and import of the full account state.
//
// A snapshot is a zstd-compressed stream of every account record in
// ascending address order, preceded by a small header and followed by the
// BLAKE3 state hash of the exported records. Import verifies the hash
// before reporting success, so a truncated or bit-flipped snapshot never
// silently loads.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/fortiblox/userledger/internal/types"
	"github.com/fortiblox/userledger/pkg/userstore"
)

// Snapshot format constants.
var (
	// magic identifies a user ledger snapshot stream.
	magic = []byte("ULEDSNAP")
)

// Format version. Bump on any layout change.
const version = uint32(1)

var (
	// ErrBadMagic is returned when a stream is not a ledger snapshot.
	ErrBadMagic = errors.New("not a ledger snapshot")

	// ErrBadVersion is returned for an unsupported snapshot version.
	ErrBadVersion = errors.New("unsupported snapshot version")

	// ErrHashMismatch is returned when the state hash doesn't verify.
	ErrHashMismatch = errors.New("snapshot state hash mismatch")

	// ErrTruncated is returned when the stream ends early.
	ErrTruncated = errors.New("snapshot truncated")
)

// Export writes a snapshot of the store to w.
//
// Layout inside the zstd stream:
//
//	magic (8) + version (4) + count (8)
//	count * [address (32) + record (userstore.AccountSize)]
//	state hash (32)
func Export(store userstore.Store, w io.Writer) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}

	count, err := store.AccountsCount()
	if err != nil {
		enc.Close()
		return err
	}

	header := make([]byte, len(magic)+4+8)
	copy(header, magic)
	binary.LittleEndian.PutUint32(header[len(magic):], version)
	binary.LittleEndian.PutUint64(header[len(magic)+4:], count)
	if _, err := enc.Write(header); err != nil {
		enc.Close()
		return err
	}

	// Hash exactly what ComputeStateHash hashes: record hashes in
	// ascending address order.
	h := blake3.New()

	err = store.IterateAccounts(func(address types.Pubkey, account *userstore.UserAccount) error {
		if _, err := enc.Write(address[:]); err != nil {
			return err
		}
		if _, err := enc.Write(account.Serialize()); err != nil {
			return err
		}
		rh := userstore.ComputeRecordHash(address, account)
		h.Write(rh[:])
		return nil
	})
	if err != nil {
		enc.Close()
		return err
	}

	if _, err := enc.Write(h.Sum(nil)[:types.HashSize]); err != nil {
		enc.Close()
		return err
	}

	return enc.Close()
}

// Import loads a snapshot from r into the store. The store should be
// empty; records are created with create-if-absent semantics, so importing
// over existing records fails with userstore.ErrAccountExists.
// Returns the number of records loaded.
func Import(store userstore.Store, r io.Reader) (uint64, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	header := make([]byte, len(magic)+4+8)
	if _, err := io.ReadFull(dec, header); err != nil {
		return 0, ErrTruncated
	}
	if !bytes.Equal(header[:len(magic)], magic) {
		return 0, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint32(header[len(magic):]); v != version {
		return 0, ErrBadVersion
	}
	count := binary.LittleEndian.Uint64(header[len(magic)+4:])

	h := blake3.New()
	entry := make([]byte, types.PubkeySize+userstore.AccountSize)

	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(dec, entry); err != nil {
			return i, ErrTruncated
		}

		var address types.Pubkey
		copy(address[:], entry[:types.PubkeySize])

		account, err := userstore.DeserializeUserAccount(entry[types.PubkeySize:])
		if err != nil {
			return i, fmt.Errorf("record %d: %w", i, err)
		}

		rh := userstore.ComputeRecordHash(address, account)
		h.Write(rh[:])

		if err := store.CreateAccount(address, account); err != nil {
			return i, fmt.Errorf("record %d: %w", i, err)
		}
	}

	want := make([]byte, types.HashSize)
	if _, err := io.ReadFull(dec, want); err != nil {
		return count, ErrTruncated
	}
	if !bytes.Equal(h.Sum(nil)[:types.HashSize], want) {
		return count, ErrHashMismatch
	}

	return count, nil
}

// WriteFile exports a snapshot to a file.
func WriteFile(store userstore.Store, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	if err := Export(store, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	return f.Close()
}

// ReadFile imports a snapshot from a file.
func ReadFile(store userstore.Store, path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	return Import(store, f)
}
