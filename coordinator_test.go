package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCoordinatorGuardBlockRecordsRejection covers §4.4's guard path end
// to end through Engine.Post: a REQUIRED guard on a missing payload field
// blocks interpretation before any economic event or journal entry is
// written, and the rejection is itself recorded as an InterpretationOutcome.
func TestCoordinatorGuardBlockRecordsRejection(t *testing.T) {
	eng := newTestEngine(t)
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	err := eng.Update(func(tx txn) error {
		return eng.RegisterPostingProfile(tx, &PostingProfile{
			EventType:     "refund.requested",
			ProfileID:     "refund-v1",
			Version:       1,
			EconomicType:  "REFUND",
			QuantityField: "amount",
			Guards: []GuardCondition{
				{Field: "approval_id", Op: GuardRequired, ReasonCode: "APPROVAL_MISSING", Message: "refund requires an approval id"},
			},
		})
	})
	require.NoError(t, err)

	eventID := NewID()
	req := &PostRequest{
		Event: &Event{
			ID:            eventID,
			EventType:     "refund.requested",
			OccurredAt:    effective,
			EffectiveDate: effective,
			ActorID:       "tester",
			Producer:      "pos-terminal",
			Payload:       map[string]any{"amount": "25.00"},
		},
		Intent: &AccountingIntent{
			SourceEventID:  eventID,
			ProfileID:      "refund-v1",
			ProfileVersion: 1,
			EffectiveDate:  effective,
			LedgerIntents: []LedgerIntent{{
				LedgerID: "ledger-1",
				Lines: []IntentLine{
					{Role: "REVENUE", Side: Debit, Amount: mustDecimal("25.00"), Currency: "USD"},
					{Role: "CASH", Side: Credit, Amount: mustDecimal("25.00"), Currency: "USD"},
				},
			}},
		},
		ActorID: "tester",
	}

	result, err := eng.Post(req)
	require.NoError(t, err)
	require.True(t, result.Rejected)
	require.NotNil(t, result.Outcome)
	assert.Equal(t, "APPROVAL_MISSING", result.Outcome.ReasonCode)
	assert.Nil(t, result.Economic)
	assert.Empty(t, result.JournalEntries)

	err = eng.View(func(tx txn) error {
		entries, err := eng.store.allJournalEntries(tx)
		require.NoError(t, err)
		assert.Empty(t, entries)
		economics, err := eng.store.allEconomicEvents(tx)
		require.NoError(t, err)
		assert.Empty(t, economics)
		return nil
	})
	require.NoError(t, err)
}

// TestCoordinatorGuardPassesWhenFieldPresent is the mirror case: the same
// profile with the required field present posts normally.
func TestCoordinatorGuardPassesWhenFieldPresent(t *testing.T) {
	eng := newTestEngine(t)
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	err := eng.Update(func(tx txn) error {
		return eng.RegisterPostingProfile(tx, &PostingProfile{
			EventType:     "refund.requested",
			ProfileID:     "refund-v1",
			Version:       1,
			EconomicType:  "REFUND",
			QuantityField: "amount",
			Guards: []GuardCondition{
				{Field: "approval_id", Op: GuardRequired, ReasonCode: "APPROVAL_MISSING", Message: "refund requires an approval id"},
			},
		})
	})
	require.NoError(t, err)

	eventID := NewID()
	req := &PostRequest{
		Event: &Event{
			ID:            eventID,
			EventType:     "refund.requested",
			OccurredAt:    effective,
			EffectiveDate: effective,
			ActorID:       "tester",
			Producer:      "pos-terminal",
			Payload:       map[string]any{"amount": "25.00", "approval_id": "appr-1"},
		},
		Intent: &AccountingIntent{
			SourceEventID:  eventID,
			ProfileID:      "refund-v1",
			ProfileVersion: 1,
			EffectiveDate:  effective,
			LedgerIntents: []LedgerIntent{{
				LedgerID: "ledger-1",
				Lines: []IntentLine{
					{Role: "REVENUE", Side: Debit, Amount: mustDecimal("25.00"), Currency: "USD"},
					{Role: "CASH", Side: Credit, Amount: mustDecimal("25.00"), Currency: "USD"},
				},
			}},
		},
		ActorID: "tester",
	}

	result, err := eng.Post(req)
	require.NoError(t, err)
	assert.False(t, result.Rejected)
	require.Len(t, result.JournalEntries, 1)
	require.NotNil(t, result.Economic)
}
