package ledger

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestEngine opens a fresh bbolt-backed Engine in a temp file and
// registers its cleanup, matching the teacher's dbFile-plus-defer-remove
// pattern (zbb_test.go).
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineWithClock(t, SystemClock{})
}

// newTestEngineWithClock is newTestEngine with an injected Clock, for
// tests that need PostedAt/CreatedAt to land near a fixed reference
// instant (e.g. reconciliation's day-proximity scoring) rather than the
// real wall clock.
func newTestEngineWithClock(t *testing.T, clock Clock) *Engine {
	t.Helper()
	dbFile := t.TempDir() + "/test.db"
	eng, err := Open(Config{DBPath: dbFile, LogWriter: os.Stderr, Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

// seedLedger wires the minimal chart of accounts, role bindings, and
// posting profile a posting scenario needs: a CASH asset account, a
// REVENUE revenue account, a rounding account, and a "sale.completed"
// posting profile mapping payload "amount" to quantity.
func seedLedger(t *testing.T, eng *Engine, ledgerID string, effectiveFrom time.Time) (cash, revenue, rounding *Account) {
	t.Helper()
	cash = &Account{Code: "1000", Name: "Cash", Type: Asset, NormalBalance: NormalDebit, IsActive: true}
	revenue = &Account{Code: "4000", Name: "Sales Revenue", Type: Revenue, NormalBalance: NormalCredit, IsActive: true}
	rounding = &Account{Code: "9999", Name: "Rounding", Type: Expense, NormalBalance: NormalDebit, IsActive: true,
		Tags: map[string]bool{RoundingTag: true}}

	err := eng.Update(func(tx txn) error {
		for _, a := range []*Account{cash, revenue, rounding} {
			if err := eng.CreateAccount(tx, a); err != nil {
				return err
			}
		}
		if err := eng.BindRole(tx, RoleBinding{
			Role: "CASH", LedgerID: ledgerID, AccountID: cash.ID, AccountCode: cash.Code,
			EffectiveFrom: effectiveFrom, IsActive: true,
		}); err != nil {
			return err
		}
		if err := eng.BindRole(tx, RoleBinding{
			Role: "REVENUE", LedgerID: ledgerID, AccountID: revenue.ID, AccountCode: revenue.Code,
			EffectiveFrom: effectiveFrom, IsActive: true,
		}); err != nil {
			return err
		}
		if err := eng.RegisterPostingProfile(tx, &PostingProfile{
			EventType:     "sale.completed",
			ProfileID:     "sale-v1",
			Version:       1,
			EconomicType:  "SALE",
			QuantityField: "amount",
		}); err != nil {
			return err
		}
		return eng.CreateFiscalPeriod(tx, &FiscalPeriod{
			PeriodCode: "2026-01",
			StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			Status:     PeriodOpen,
		})
	})
	require.NoError(t, err)
	return cash, revenue, rounding
}

// saleRequest builds a PostRequest for a simple cash-sale event balanced
// between the CASH and REVENUE roles, for ledgerID, dated effectiveDate.
func saleRequest(eventID ID, ledgerID string, amount string, effectiveDate time.Time) *PostRequest {
	amt, err := ParseDecimal(amount)
	if err != nil {
		panic(err)
	}
	return &PostRequest{
		Event: &Event{
			ID:            eventID,
			EventType:     "sale.completed",
			OccurredAt:    effectiveDate,
			EffectiveDate: effectiveDate,
			ActorID:       "tester",
			Producer:      "pos-terminal",
			Payload:       map[string]any{"amount": amount},
		},
		Intent: &AccountingIntent{
			SourceEventID:  eventID,
			ProfileID:      "sale-v1",
			ProfileVersion: 1,
			EffectiveDate:  effectiveDate,
			LedgerIntents: []LedgerIntent{
				{
					LedgerID: ledgerID,
					Lines: []IntentLine{
						{Role: "CASH", Side: Debit, Amount: amt, Currency: "USD"},
						{Role: "REVENUE", Side: Credit, Amount: amt, Currency: "USD"},
					},
				},
			},
		},
		ActorID: "tester",
	}
}
