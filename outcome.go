package ledger

import "time"

// OutcomeKind distinguishes a successful posting from a rejected one.
type OutcomeKind string

const (
	OutcomeSuccess    OutcomeKind = "SUCCESS"
	OutcomeRejection  OutcomeKind = "REJECTION"
)

// InterpretationOutcome links a source event to the economic event and
// journal entries it produced, or records why it was rejected (spec §3,
// append-only).
type InterpretationOutcome struct {
	ID              ID
	SourceEventID   ID
	Kind            OutcomeKind
	EconomicEventID *ID
	JournalEntryIDs []ID
	ReasonCode      string
	Message         string
	CreatedAt       time.Time
}

// outcomeRecorder is C11: persists the interpretation outcome linking
// event <-> economic event <-> journal entries. Grounded on the teacher's
// event_store.go projection-update pattern, adapted to an append-only
// table rather than an in-place status update.
type outcomeRecorder struct {
	store *store
	clock Clock
}

func newOutcomeRecorder(s *store, clock Clock) *outcomeRecorder {
	return &outcomeRecorder{store: s, clock: clock}
}

func (r *outcomeRecorder) recordSuccess(tx txn, sourceEventID, economicEventID ID, journalEntryIDs []ID) (*InterpretationOutcome, error) {
	o := &InterpretationOutcome{
		ID:              NewID(),
		SourceEventID:   sourceEventID,
		Kind:            OutcomeSuccess,
		EconomicEventID: &economicEventID,
		JournalEntryIDs: journalEntryIDs,
		CreatedAt:       r.clock.Now(),
	}
	return o, r.store.saveOutcome(tx, o)
}

func (r *outcomeRecorder) recordRejection(tx txn, sourceEventID ID, reasonCode, message string) (*InterpretationOutcome, error) {
	o := &InterpretationOutcome{
		ID:            NewID(),
		SourceEventID: sourceEventID,
		Kind:          OutcomeRejection,
		ReasonCode:    reasonCode,
		Message:       message,
		CreatedAt:     r.clock.Now(),
	}
	return o, r.store.saveOutcome(tx, o)
}
