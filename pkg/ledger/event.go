package ledger

import "github.com/fortiblox/userledger/internal/types"

// TransferEvent is emitted after every successful transfer for external
// observers. It is append-only output; no handler state depends on it.
type TransferEvent struct {
	// From is the sender's authority.
	From types.Pubkey

	// To is the receiver's authority.
	To types.Pubkey

	// Amount is the transferred value.
	Amount uint64

	// Timestamp is when the transfer occurred (unix seconds).
	Timestamp int64
}

// EventEmitter receives transfer events.
type EventEmitter interface {
	Emit(event TransferEvent) error
}

// MemoryEmitter collects events in memory, for tests and ephemeral hosts.
type MemoryEmitter struct {
	events []TransferEvent
}

// NewMemoryEmitter creates a new in-memory emitter.
func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

// Emit appends the event.
func (m *MemoryEmitter) Emit(event TransferEvent) error {
	m.events = append(m.events, event)
	return nil
}

// Events returns all collected events.
func (m *MemoryEmitter) Events() []TransferEvent {
	out := make([]TransferEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Verify that MemoryEmitter implements EventEmitter.
var _ EventEmitter = (*MemoryEmitter)(nil)
