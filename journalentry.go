package ledger

import "time"

// JournalStatus is a closed variant; transitions are one-way DRAFT ->
// POSTED -> REVERSED (I10).
type JournalStatus string

const (
	JournalDraft    JournalStatus = "DRAFT"
	JournalPosted   JournalStatus = "POSTED"
	JournalReversed JournalStatus = "REVERSED"
)

var legalJournalTransitions = map[JournalStatus]map[JournalStatus]bool{
	JournalDraft:    {JournalPosted: true},
	JournalPosted:   {JournalReversed: true},
	JournalReversed: {},
}

// CanTransitionJournal reports whether from -> to is a legal journal
// entry status transition under I10.
func CanTransitionJournal(from, to JournalStatus) bool {
	return legalJournalTransitions[from][to]
}

// JournalEntry is the header of one posted double-entry transaction
// (spec §3). Once POSTED, every field except the audit-trail fields is
// immutable and delete is forbidden (I11).
type JournalEntry struct {
	ID                 ID
	LedgerID           string
	SourceEventID      ID
	SourceEventType    string
	OccurredAt         time.Time
	EffectiveDate      time.Time
	PostedAt           time.Time
	ActorID            string
	Status             JournalStatus
	ReversalOfID       *ID
	IdempotencyKey     string
	PostingRuleVersion int
	// Snapshot versions captured at posting time (spec §3).
	COASnapshotVersion       int
	DimensionSnapshotVersion int
	CurrencySnapshotVersion  int
	FXSnapshotVersion        int
	SnapshotID               ID
	Seq                      int64
	Description              string
	UpdatedAt                time.Time
	UpdatedBy                string
}

// JournalLine is a child line of a JournalEntry (spec §3). Amount is
// always positive; sign comes from Side. If the parent entry is POSTED,
// lines are immutable and cannot be deleted (I14).
type JournalLine struct {
	ID              ID
	JournalEntryID  ID
	AccountID       ID
	Side            Side
	Amount          Decimal
	Currency        Currency
	Dimensions      Dimensions
	IsRounding      bool
	LineMemo        string
	ExchangeRateID  *ID
	LineSeq         int
}
