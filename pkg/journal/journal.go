// Package journal provides the append-only transfer event log.
//
// Every successful transfer appends one entry for external observers.
// Entries are keyed by a monotonically increasing sequence number and carry
// a BLAKE3 checksum so corruption is detected on read. The journal is pure
// output: no ledger state depends on it and nothing is ever rewritten.
package journal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/zeebo/blake3"
	bolt "go.etcd.io/bbolt"

	"github.com/fortiblox/userledger/internal/types"
	"github.com/fortiblox/userledger/pkg/ledger"
)

var (
	// ErrEntryNotFound is returned when a sequence number doesn't exist.
	ErrEntryNotFound = errors.New("journal entry not found")

	// ErrClosed is returned when operating on a closed journal.
	ErrClosed = errors.New("journal closed")

	// ErrCorrupted is returned when an entry fails its checksum.
	ErrCorrupted = errors.New("journal entry corrupted")
)

// Bucket names for BoltDB.
var (
	// bucketEvents stores entries keyed by sequence number.
	bucketEvents = []byte("events")

	// bucketMetadata stores journal metadata.
	bucketMetadata = []byte("metadata")
)

// Metadata keys.
var (
	keyNextSeq = []byte("next_seq")
)

// entrySize is the serialized entry width:
// from (32) + to (32) + amount (8) + timestamp (8) + checksum (32).
const entrySize = 32 + 32 + 8 + 8 + 32

// Config holds journal configuration options.
type Config struct {
	// Path is the file path for the journal database.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// Timeout is how long to wait for the file lock.
	Timeout time.Duration
}

// DefaultConfig returns the default journal configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:    path,
		NoSync:  false,
		Timeout: 5 * time.Second,
	}
}

// Entry is a stored transfer event with its sequence number.
type Entry struct {
	Seq   uint64
	Event ledger.TransferEvent
}

// Journal is the BoltDB-backed event log.
type Journal struct {
	db     *bolt.DB
	closed bool
}

// Open opens (or creates) a journal at the configured path.
func Open(cfg Config) (*Journal, error) {
	opts := &bolt.Options{
		Timeout: cfg.Timeout,
		NoSync:  cfg.NoSync,
	}

	db, err := bolt.Open(cfg.Path, 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEvents); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMetadata); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Journal{db: db}, nil
}

// seqKey encodes a sequence number as a big-endian key so BoltDB iterates
// entries in append order.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// encodeEntry serializes an event with its checksum.
func encodeEntry(event ledger.TransferEvent) []byte {
	buf := make([]byte, entrySize)
	offset := 0

	copy(buf[offset:], event.From[:])
	offset += 32

	copy(buf[offset:], event.To[:])
	offset += 32

	binary.LittleEndian.PutUint64(buf[offset:], event.Amount)
	offset += 8

	binary.LittleEndian.PutUint64(buf[offset:], uint64(event.Timestamp))
	offset += 8

	sum := blake3.Sum256(buf[:offset])
	copy(buf[offset:], sum[:])

	return buf
}

// decodeEntry deserializes and checksum-verifies an event.
func decodeEntry(data []byte) (ledger.TransferEvent, error) {
	var event ledger.TransferEvent

	if len(data) != entrySize {
		return event, ErrCorrupted
	}

	payload := data[:entrySize-32]
	sum := blake3.Sum256(payload)
	if !bytes.Equal(sum[:], data[entrySize-32:]) {
		return event, ErrCorrupted
	}

	offset := 0
	copy(event.From[:], payload[offset:])
	offset += 32

	copy(event.To[:], payload[offset:])
	offset += 32

	event.Amount = binary.LittleEndian.Uint64(payload[offset:])
	offset += 8

	event.Timestamp = int64(binary.LittleEndian.Uint64(payload[offset:]))

	return event, nil
}

// Append stores an event and returns its sequence number.
// Sequence numbers start at 0 and never repeat.
func (j *Journal) Append(event ledger.TransferEvent) (uint64, error) {
	if j.closed {
		return 0, ErrClosed
	}

	var seq uint64

	err := j.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		events := tx.Bucket(bucketEvents)

		if v := meta.Get(keyNextSeq); v != nil {
			seq = binary.BigEndian.Uint64(v)
		}

		if err := events.Put(seqKey(seq), encodeEntry(event)); err != nil {
			return err
		}

		return meta.Put(keyNextSeq, seqKey(seq+1))
	})
	if err != nil {
		return 0, err
	}

	return seq, nil
}

// Emit implements ledger.EventEmitter.
func (j *Journal) Emit(event ledger.TransferEvent) error {
	_, err := j.Append(event)
	return err
}

// Get retrieves a single entry by sequence number.
func (j *Journal) Get(seq uint64) (*Entry, error) {
	if j.closed {
		return nil, ErrClosed
	}

	var entry *Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketEvents).Get(seqKey(seq))
		if data == nil {
			return ErrEntryNotFound
		}
		event, err := decodeEntry(data)
		if err != nil {
			return err
		}
		entry = &Entry{Seq: seq, Event: event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Range returns up to limit entries starting at the given sequence number,
// in append order. A limit of 0 means no limit.
func (j *Journal) Range(start uint64, limit int) ([]Entry, error) {
	if j.closed {
		return nil, ErrClosed
	}

	var entries []Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()

		for k, v := c.Seek(seqKey(start)); k != nil; k, v = c.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			event, err := decodeEntry(v)
			if err != nil {
				return err
			}
			entries = append(entries, Entry{
				Seq:   binary.BigEndian.Uint64(k),
				Event: event,
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Count returns the number of stored entries.
func (j *Journal) Count() (uint64, error) {
	if j.closed {
		return 0, ErrClosed
	}

	var count uint64
	err := j.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMetadata).Get(keyNextSeq); v != nil {
			count = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return count, err
}

// EventsForAuthority returns entries where the given authority is the
// sender or receiver, starting at the given sequence number.
func (j *Journal) EventsForAuthority(authority types.Pubkey, start uint64, limit int) ([]Entry, error) {
	if j.closed {
		return nil, ErrClosed
	}

	var entries []Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()

		for k, v := c.Seek(seqKey(start)); k != nil; k, v = c.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			event, err := decodeEntry(v)
			if err != nil {
				return err
			}
			if !event.From.Equals(authority) && !event.To.Equals(authority) {
				continue
			}
			entries = append(entries, Entry{
				Seq:   binary.BigEndian.Uint64(k),
				Event: event,
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Sync flushes the journal to disk.
func (j *Journal) Sync() error {
	if j.closed {
		return ErrClosed
	}
	return j.db.Sync()
}

// Close closes the journal.
func (j *Journal) Close() error {
	if j.closed {
		return ErrClosed
	}
	j.closed = true
	return j.db.Close()
}

// Verify that Journal implements ledger.EventEmitter.
var _ ledger.EventEmitter = (*Journal)(nil)
