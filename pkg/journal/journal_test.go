package journal

import (
	"path/filepath"
	"testing"

	"github.com/fortiblox/userledger/internal/types"
	"github.com/fortiblox/userledger/pkg/ledger"
	"github.com/fortiblox/userledger/pkg/pda"
	"github.com/fortiblox/userledger/pkg/userstore"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "events.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func testEvent(from, to byte, amount uint64) ledger.TransferEvent {
	return ledger.TransferEvent{
		From:      types.Pubkey{from},
		To:        types.Pubkey{to},
		Amount:    amount,
		Timestamp: 1700000000,
	}
}

func TestAppendGet(t *testing.T) {
	j := openTestJournal(t)

	event := testEvent(0x01, 0x02, 500)
	seq, err := j.Append(event)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("first seq = %d, want 0", seq)
	}

	entry, err := j.Get(seq)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Event != event {
		t.Errorf("stored event = %+v, want %+v", entry.Event, event)
	}
}

func TestSequenceMonotonic(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 5; i++ {
		seq, err := j.Append(testEvent(1, 2, uint64(i+1)))
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		if seq != uint64(i) {
			t.Errorf("seq = %d, want %d", seq, i)
		}
	}

	count, err := j.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestGetMissing(t *testing.T) {
	j := openTestJournal(t)

	if _, err := j.Get(42); err != ErrEntryNotFound {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestRange(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 10; i++ {
		if _, err := j.Append(testEvent(1, 2, uint64(i))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := j.Range(3, 4)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	for i, e := range entries {
		if e.Seq != uint64(3+i) {
			t.Errorf("entry %d seq = %d, want %d", i, e.Seq, 3+i)
		}
		if e.Event.Amount != uint64(3+i) {
			t.Errorf("entry %d amount = %d, want %d", i, e.Event.Amount, 3+i)
		}
	}

	// Zero limit returns the rest.
	all, err := j.Range(0, 0)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(all) != 10 {
		t.Errorf("got %d entries, want 10", len(all))
	}
}

func TestEventsForAuthority(t *testing.T) {
	j := openTestJournal(t)

	if _, err := j.Append(testEvent(0x01, 0x02, 10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := j.Append(testEvent(0x03, 0x04, 20)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := j.Append(testEvent(0x02, 0x01, 30)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := j.EventsForAuthority(types.Pubkey{0x01}, 0, 0)
	if err != nil {
		t.Fatalf("EventsForAuthority failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Event.Amount != 10 || entries[1].Event.Amount != 30 {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	event := testEvent(0x01, 0x02, 500)
	data := encodeEntry(event)

	if _, err := decodeEntry(data); err != nil {
		t.Fatalf("decode of valid entry failed: %v", err)
	}

	data[40] ^= 0x01
	if _, err := decodeEntry(data); err != ErrCorrupted {
		t.Errorf("expected ErrCorrupted, got %v", err)
	}

	if _, err := decodeEntry(data[:10]); err != ErrCorrupted {
		t.Errorf("short entry: expected ErrCorrupted, got %v", err)
	}
}

func TestReopenKeepsSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	j, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := j.Append(testEvent(1, 2, 100)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	seq, err := reopened.Append(testEvent(1, 2, 200))
	if err != nil {
		t.Fatalf("Append after reopen failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("seq after reopen = %d, want 1", seq)
	}
}

// TestJournalAsEmitter wires the journal into a live processor and checks
// that a successful transfer lands in the log.
func TestJournalAsEmitter(t *testing.T) {
	j := openTestJournal(t)

	store := userstore.NewMemoryStore()
	defer store.Close()

	proc := ledger.NewProcessor(ledger.Config{
		Store:  store,
		Events: j,
		Now:    func() int64 { return 1700000000 },
	})

	alice := types.Pubkey{0x51}
	bob := types.Pubkey{0x52}

	aliceAddr, _, err := pda.DeriveUserAddress(alice)
	if err != nil {
		t.Fatalf("DeriveUserAddress failed: %v", err)
	}
	bobAddr, _, err := pda.DeriveUserAddress(bob)
	if err != nil {
		t.Fatalf("DeriveUserAddress failed: %v", err)
	}

	if err := proc.InitializeUser(aliceAddr, alice, "Alice", 30); err != nil {
		t.Fatalf("InitializeUser failed: %v", err)
	}
	if err := proc.InitializeUser(bobAddr, bob, "Bob", 25); err != nil {
		t.Fatalf("InitializeUser failed: %v", err)
	}

	rec, err := store.GetAccount(aliceAddr)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	rec.Balance = 1000
	if err := store.PutAccount(aliceAddr, rec); err != nil {
		t.Fatalf("PutAccount failed: %v", err)
	}

	if err := proc.TransferTokens(aliceAddr, bobAddr, alice, 500); err != nil {
		t.Fatalf("TransferTokens failed: %v", err)
	}

	entry, err := j.Get(0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Event.From != alice || entry.Event.To != bob || entry.Event.Amount != 500 {
		t.Errorf("unexpected journaled event: %+v", entry.Event)
	}
}

func TestClosed(t *testing.T) {
	j := openTestJournal(t)
	j.Close()

	if _, err := j.Append(testEvent(1, 2, 1)); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := j.Count(); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
