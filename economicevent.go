package ledger

import "time"

// EconomicEvent is the interpreted meaning of one source Event under one
// policy (spec §3). Append-only: one source event may yield zero, one, or
// multiple economic events over time — corrections add new rows, they
// never mutate an existing one.
type EconomicEvent struct {
	ID               ID
	SourceEventID    ID
	EconomicType     string
	Quantity         *Decimal
	Dimensions       Dimensions
	EffectiveDate    time.Time
	ProfileID        string
	ProfileVersion   int
	ProfileHash      string
	ValuationAmount  *Decimal
	ValuationCcy     *Currency
	COASnapshotVer   int
	DimSnapshotVer   int
	CcySnapshotVer   int
	FXSnapshotVer    int
	CreatedAt        time.Time
}
