package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJournalWriterRejectsRoleUnresolved covers §4.3 step 2's role
// resolution failure: an IntentLine referencing a role with no binding
// for the ledger fails with ROLE_UNRESOLVED and writes nothing.
func TestJournalWriterRejectsRoleUnresolved(t *testing.T) {
	eng := newTestEngine(t)
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	req := saleRequest(NewID(), "ledger-1", "100.00", effective)
	req.Intent.LedgerIntents[0].Lines[0].Role = "NONEXISTENT_ROLE"

	_, err := eng.Post(req)
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrRoleUnresolved, code)

	err = eng.View(func(tx txn) error {
		entries, err := eng.store.allJournalEntries(tx)
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	})
	require.NoError(t, err)
}

// TestJournalWriterRejectsUnbalancedIntent covers I8/I13: ValidateBalance
// rejects an intent whose debits and credits don't net to zero before any
// line is ever resolved or written.
func TestJournalWriterRejectsUnbalancedIntent(t *testing.T) {
	eng := newTestEngine(t)
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	req := saleRequest(NewID(), "ledger-1", "100.00", effective)
	req.Intent.LedgerIntents[0].Lines[1].Amount = mustDecimal("99.00")

	_, err := eng.Post(req)
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrUnbalanced, code)
}

// TestJournalWriterAdjustmentAfterCloseRequiresFlag covers §4.3 step 1:
// a CLOSED period that allows adjustments still rejects a non-adjustment
// post, and accepts one flagged IsAdjustment.
func TestJournalWriterAdjustmentAfterCloseRequiresFlag(t *testing.T) {
	eng := newTestEngine(t)
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	var periodID ID
	err := eng.Update(func(tx txn) error {
		p, found, err := eng.store.findPeriodForDate(tx, effective)
		require.NoError(t, err)
		require.True(t, found)
		p.AllowsAdjustment = true
		require.NoError(t, eng.store.putPeriod(tx, p))
		periodID = p.ID
		return eng.TransitionPeriod(tx, periodID, PeriodClosing, "closer")
	})
	require.NoError(t, err)
	err = eng.Update(func(tx txn) error {
		return eng.TransitionPeriod(tx, periodID, PeriodClosed, "closer")
	})
	require.NoError(t, err)

	req := saleRequest(NewID(), "ledger-1", "100.00", effective)
	_, err = eng.Post(req)
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrPeriodClosed, code)

	adjReq := saleRequest(NewID(), "ledger-1", "100.00", effective)
	adjReq.IsAdjustment = true
	result, err := eng.Post(adjReq)
	require.NoError(t, err)
	require.Len(t, result.JournalEntries, 1)
}

// TestJournalWriterRoundingResidualExceedingToleranceIsUnbalanced covers
// spec §4.3 step 4's second branch: three debit lines of 10.005 USD each
// pass ValidateBalance pre-rounding (total debit 30.015 vs one 30.00
// credit line, a 0.015 residual within USD's 0.02 tolerance), but each
// line's independent HALF-UP rounding to 2 decimals (10.005 -> 10.01)
// compounds the residual to 0.03, which exceeds tolerance and must be
// rejected rather than silently absorbed by a rounding line.
func TestJournalWriterRoundingResidualExceedingToleranceIsUnbalanced(t *testing.T) {
	eng := newTestEngine(t)
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	eventID := NewID()
	lines := []IntentLine{
		{Role: "CASH", Side: Debit, Amount: mustDecimal("10.005"), Currency: "USD"},
		{Role: "CASH", Side: Debit, Amount: mustDecimal("10.005"), Currency: "USD"},
		{Role: "CASH", Side: Debit, Amount: mustDecimal("10.005"), Currency: "USD"},
		{Role: "REVENUE", Side: Credit, Amount: mustDecimal("30.00"), Currency: "USD"},
	}
	req := &PostRequest{
		Event: &Event{
			ID: eventID, EventType: "sale.completed", OccurredAt: effective, EffectiveDate: effective,
			ActorID: "tester", Producer: "pos-terminal", Payload: map[string]any{"amount": "30.015"},
		},
		Intent: &AccountingIntent{
			SourceEventID: eventID, ProfileID: "sale-v1", ProfileVersion: 1, EffectiveDate: effective,
			LedgerIntents: []LedgerIntent{{LedgerID: "ledger-1", Lines: lines}},
		},
		ActorID: "tester",
	}

	_, err := eng.Post(req)
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrUnbalanced, code)

	err = eng.View(func(tx txn) error {
		entries, err := eng.store.allJournalEntries(tx)
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	})
	require.NoError(t, err)
}
