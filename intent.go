package ledger

import (
	"fmt"
	"time"
)

// IntentLine is one role-based debit or credit line within a LedgerIntent
// (spec §3). Amount is always positive.
type IntentLine struct {
	Role       string
	Side       Side
	Amount     Decimal
	Currency   Currency
	Dimensions Dimensions
	Memo       string
}

// LedgerIntent is one ledger's portion of an AccountingIntent: an ordered
// sequence of IntentLines that must balance per currency (I8).
type LedgerIntent struct {
	LedgerID string
	Lines    []IntentLine
}

// AccountingIntent is the transient, balanced posting proposal a caller
// hands to the Journal Writer (spec §3, §9): a flat value — a header
// owning an ordered list of ledger intents, each owning an ordered list
// of intent lines. No cycles, no back-references.
type AccountingIntent struct {
	SourceEventID  ID
	ProfileID      string
	ProfileVersion int
	EffectiveDate  time.Time
	LedgerIntents  []LedgerIntent
	SnapshotID     ID
}

// ValidateBalance checks I8: within each ledger intent and each currency,
// sum(debits) == sum(credits), ignoring rounding (the Journal Writer
// applies rounding and may add one synthetic line afterward).
func (ai *AccountingIntent) ValidateBalance() error {
	for _, li := range ai.LedgerIntents {
		totals := map[Currency]struct{ Debit, Credit Decimal }{}
		for _, line := range li.Lines {
			if !line.Side.valid() {
				return newErr(ErrValidationFailed, "ledger %s: invalid side %q", li.LedgerID, line.Side)
			}
			if !line.Amount.IsPositive() {
				return newErr(ErrValidationFailed, "ledger %s: line amount must be positive", li.LedgerID)
			}
			t := totals[line.Currency]
			if line.Side == Debit {
				t.Debit = t.Debit.Add(line.Amount)
			} else {
				t.Credit = t.Credit.Add(line.Amount)
			}
			totals[line.Currency] = t
		}
		for ccy, t := range totals {
			tol, ok := CurrencyTolerance(ccy)
			if !ok {
				return newErr(ErrCurrencyInvalid, "unknown currency %q", ccy)
			}
			if t.Debit.Sub(t.Credit).Abs().Cmp(tol) > 0 {
				return newErr(ErrUnbalanced, "ledger %s currency %s: debits=%s credits=%s",
					li.LedgerID, ccy, t.Debit.String(), t.Credit.String())
			}
		}
	}
	return nil
}

func (ai *AccountingIntent) String() string {
	return fmt.Sprintf("AccountingIntent{source=%s profile=%s/%d ledgers=%d}",
		ai.SourceEventID, ai.ProfileID, ai.ProfileVersion, len(ai.LedgerIntents))
}
