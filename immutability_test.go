package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestImmutabilityGuardsEventMutation covers I1: events are never
// mutable, regardless of field.
func TestImmutabilityGuardsEventMutation(t *testing.T) {
	eng := newTestEngine(t)
	err := eng.View(func(tx txn) error {
		return eng.immutability.guardEventMutation(NewID())
	})
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrImmutabilityViolation, code)
}

// TestImmutabilityAllowsMutableAccountFields covers the account-level
// carve-out: name/tags/is_active/parent_id stay mutable even though
// code/type/normal_balance freeze once referenced by a posted line.
func TestImmutabilityAllowsMutableAccountFields(t *testing.T) {
	eng := newTestEngine(t)
	cash, _, _ := seedLedger(t, eng, "ledger-1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	err := eng.View(func(tx txn) error {
		return eng.immutability.guardAccountMutation(tx, cash.ID, []string{"name", "is_active"})
	})
	assert.NoError(t, err)
}

// TestImmutabilityBlocksStructuralAccountFieldsOncePosted covers I2: once
// an account is referenced by a POSTED line, its code/type/normal_balance
// can no longer change.
func TestImmutabilityBlocksStructuralAccountFieldsOncePosted(t *testing.T) {
	eng := newTestEngine(t)
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	cash, _, _ := seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	_, err := eng.Post(saleRequest(NewID(), "ledger-1", "100.00", effective))
	require.NoError(t, err)

	err = eng.View(func(tx txn) error {
		return eng.immutability.guardAccountMutation(tx, cash.ID, []string{"code"})
	})
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrImmutabilityViolation, code)
}

// TestImmutabilityGuardsJournalEntryAndLineMutation covers I11/I14: a
// POSTED entry's non-audit fields and every one of its lines reject
// mutation outright.
func TestImmutabilityGuardsJournalEntryAndLineMutation(t *testing.T) {
	eng := newTestEngine(t)
	effective := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seedLedger(t, eng, "ledger-1", effective.AddDate(0, 0, -1))

	result, err := eng.Post(saleRequest(NewID(), "ledger-1", "100.00", effective))
	require.NoError(t, err)
	entry := result.JournalEntries[0]

	err = eng.View(func(tx txn) error {
		return eng.immutability.guardJournalEntryMutation(tx, entry.ID, []string{"effective_date"})
	})
	require.Error(t, err)

	err = eng.View(func(tx txn) error {
		return eng.immutability.guardJournalEntryMutation(tx, entry.ID, []string{"description"})
	})
	assert.NoError(t, err)

	err = eng.View(func(tx txn) error {
		return eng.immutability.guardJournalEntryDelete(tx, entry.ID)
	})
	require.Error(t, err)

	err = eng.View(func(tx txn) error {
		return eng.immutability.guardJournalLineMutation(NewID())
	})
	require.Error(t, err)
}

// TestImmutabilityGuardsPeriodTransition covers I4: only the legal
// transition set is permitted.
func TestImmutabilityGuardsPeriodTransition(t *testing.T) {
	eng := newTestEngine(t)
	assert.NoError(t, eng.immutability.guardPeriodTransition(PeriodOpen, PeriodClosing))
	assert.Error(t, eng.immutability.guardPeriodTransition(PeriodLocked, PeriodOpen))
	assert.Error(t, eng.immutability.guardPeriodTransition(PeriodClosed, PeriodOpen))
}

// TestImmutabilityBlocksDeletingSoleRoundingAccount covers B3/I3: deleting
// the only active rounding-tagged account left in a currency bucket is
// rejected, but deleting one of two in the same bucket is accepted.
func TestImmutabilityBlocksDeletingSoleRoundingAccount(t *testing.T) {
	eng := newTestEngine(t)
	_, _, rounding := seedLedger(t, eng, "ledger-1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	err := eng.View(func(tx txn) error {
		return eng.immutability.guardAccountDelete(tx, rounding.ID)
	})
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrImmutabilityViolation, code)

	var secondRounding *Account
	err = eng.Update(func(tx txn) error {
		secondRounding = &Account{
			Code: "9998", Name: "Rounding (secondary)", Type: Expense, NormalBalance: NormalDebit,
			IsActive: true, Tags: map[string]bool{RoundingTag: true},
		}
		return eng.CreateAccount(tx, secondRounding)
	})
	require.NoError(t, err)

	err = eng.View(func(tx txn) error {
		return eng.immutability.guardAccountDelete(tx, rounding.ID)
	})
	assert.NoError(t, err)
}
