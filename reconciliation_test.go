package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReconciliationAutoReconcileExactMatch covers the happy path: one
// posted CASH line matched exactly by amount and currency to a same-day
// external statement line.
func TestReconciliationAutoReconcileExactMatch(t *testing.T) {
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	eng := newTestEngineWithClock(t, FixedClock{At: effective})
	cash, _, _ := seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	_, err := eng.Post(saleRequest(NewID(), "ledger-1", "100.00", effective))
	require.NoError(t, err)

	var matches []*ReconciliationMatch
	err = eng.Update(func(tx txn) error {
		ms, err := eng.Reconciliation().AutoReconcile(tx, cash.ID, []*ExternalStatement{{
			ID: "stmt-1", Date: effective, Amount: mustDecimal("100.00"), Currency: "USD",
			Reference: "bank-ref-1", BankAccount: "acct-1",
		}})
		if err != nil {
			return err
		}
		matches = ms
		return nil
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "EXACT", matches[0].MatchType)
	assert.Len(t, matches[0].JournalLines, 1)
	assert.Equal(t, cash.ID, matches[0].JournalLines[0].AccountID)
}

// TestReconciliationConfirmUpdatesSummary covers GetReconciliationSummary:
// confirming a match raises ReconciledCount and ReconciliationRate.
func TestReconciliationConfirmUpdatesSummary(t *testing.T) {
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	eng := newTestEngineWithClock(t, FixedClock{At: effective})
	cash, _, _ := seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	_, err := eng.Post(saleRequest(NewID(), "ledger-1", "100.00", effective))
	require.NoError(t, err)

	err = eng.Update(func(tx txn) error {
		before, err := eng.Reconciliation().GetReconciliationSummary(tx, cash.ID, "USD", effective)
		require.NoError(t, err)
		assert.Equal(t, 0, before.ReconciledCount)
		assert.Equal(t, 1, before.UnreconciledCount)

		matches, err := eng.Reconciliation().AutoReconcile(tx, cash.ID, []*ExternalStatement{{
			ID: "stmt-1", Date: effective, Amount: mustDecimal("100.00"), Currency: "USD", Reference: "bank-ref-1",
		}})
		require.NoError(t, err)
		require.Len(t, matches, 1)

		_, err = eng.Reconciliation().ConfirmReconciliation(tx, matches[0])
		require.NoError(t, err)

		after, err := eng.Reconciliation().GetReconciliationSummary(tx, cash.ID, "USD", effective)
		require.NoError(t, err)
		assert.Equal(t, 1, after.ReconciledCount)
		assert.Equal(t, 0, after.UnreconciledCount)
		assert.Equal(t, 1.0, after.ReconciliationRate)
		return nil
	})
	require.NoError(t, err)
}

// TestReconciliationManualReconciliationIsRecorded covers
// CreateManualReconciliation for pairings AutoReconcile didn't find.
func TestReconciliationManualReconciliationIsRecorded(t *testing.T) {
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	eng := newTestEngineWithClock(t, FixedClock{At: effective})
	seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	result, err := eng.Post(saleRequest(NewID(), "ledger-1", "100.00", effective))
	require.NoError(t, err)

	var lineIDs []ID
	err = eng.View(func(tx txn) error {
		lines, err := eng.store.linesForEntry(tx, result.JournalEntries[0].ID)
		require.NoError(t, err)
		for _, l := range lines {
			lineIDs = append(lineIDs, l.ID)
		}
		return nil
	})
	require.NoError(t, err)

	err = eng.Update(func(tx txn) error {
		rec, err := eng.Reconciliation().CreateManualReconciliation(tx, "manual-ref-1", lineIDs)
		require.NoError(t, err)
		assert.Equal(t, ReconciliationReconciled, rec.Status)
		assert.NotNil(t, rec.CompletedAt)
		return nil
	})
	require.NoError(t, err)
}
