package ledger

// Well-known sequence counter names (spec §6: sequence_counters table).
const (
	SeqJournalEntry = "journal_entry"
	SeqAuditEvent   = "audit_event"
)

// sequenceAllocator is C3: per-named-counter monotonic integer allocation
// under a row-level lock. Grounded on
// original_source/finance_kernel/services/sequence_service.py: the
// counter row is read, incremented, and written back inside the caller's
// transaction; a rolled-back transaction's increment is discarded with it
// because bbolt never commits a failed Update closure. This is
// deliberately NOT a `SELECT MAX(seq)+1` pattern and NOT an in-memory
// atomic counter — both are explicitly forbidden by spec §4.1.
type sequenceAllocator struct {
	store *store
}

func newSequenceAllocator(s *store) *sequenceAllocator {
	return &sequenceAllocator{store: s}
}

// next allocates the next value for the named counter within tx. If the
// counter does not exist, it is created with value 1.
func (a *sequenceAllocator) next(tx txn, name string) (int64, error) {
	return a.store.nextSequence(tx, name)
}

// current returns the counter's current value without incrementing it.
func (a *sequenceAllocator) current(tx txn, name string) (int64, bool, error) {
	return a.store.currentSequence(tx, name)
}
