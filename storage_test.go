package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStoreAccountLookupByCode covers findAccountByCode, the primitive
// CreateAccount's uniqueness check is built on.
func TestStoreAccountLookupByCode(t *testing.T) {
	eng := newTestEngine(t)
	err := eng.Update(func(tx txn) error {
		acct := &Account{Code: "5000", Name: "Expense", Type: Expense, NormalBalance: NormalDebit, IsActive: true}
		require.NoError(t, eng.CreateAccount(tx, acct))

		found, ok, err := eng.store.findAccountByCode(tx, "5000")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, acct.ID, found.ID)

		_, ok, err = eng.store.findAccountByCode(tx, "no-such-code")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

// TestStoreDimensionAndValueRoundTrip covers the dimension/dimension-value
// bucket pair and dimensionHasValues's prefix scan.
func TestStoreDimensionAndValueRoundTrip(t *testing.T) {
	eng := newTestEngine(t)
	err := eng.Update(func(tx txn) error {
		dim := &Dimension{ID: NewID(), Code: "DEPT", Name: "Department", IsActive: true}
		require.NoError(t, eng.store.putDimension(tx, dim))

		got, ok, err := eng.store.getDimension(tx, "DEPT")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Department", got.Name)

		hasValues, err := eng.store.dimensionHasValues(tx, "DEPT")
		require.NoError(t, err)
		assert.False(t, hasValues)

		val := &DimensionValue{ID: NewID(), DimensionCode: "DEPT", Code: "ENG", Name: "Engineering", IsActive: true}
		require.NoError(t, eng.store.putDimensionValue(tx, val))

		gotVal, ok, err := eng.store.getDimensionValue(tx, "DEPT", "ENG")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Engineering", gotVal.Name)

		hasValues, err = eng.store.dimensionHasValues(tx, "DEPT")
		require.NoError(t, err)
		assert.True(t, hasValues)

		hasValues, err = eng.store.dimensionHasValues(tx, "COST_CENTER")
		require.NoError(t, err)
		assert.False(t, hasValues)
		return nil
	})
	require.NoError(t, err)
}

// TestStoreExchangeRateRoundTrip covers put/get/allExchangeRates.
func TestStoreExchangeRateRoundTrip(t *testing.T) {
	eng := newTestEngine(t)
	rate := &ExchangeRate{
		ID: NewID(), FromCurrency: "EUR", ToCurrency: "USD",
		Rate: mustDecimal("1.08"), EffectiveAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Source: "ecb",
	}
	err := eng.Update(func(tx txn) error {
		require.NoError(t, eng.store.putExchangeRate(tx, rate))

		got, ok, err := eng.store.getExchangeRate(tx, rate.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "1.08", got.Rate.String())

		all, err := eng.store.allExchangeRates(tx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		return nil
	})
	require.NoError(t, err)
}

// TestStorePeriodLookupByCodeAndDate covers findPeriodByCode/
// findPeriodForDate returning not-found for a date outside any period.
func TestStorePeriodLookupByCodeAndDate(t *testing.T) {
	eng := newTestEngine(t)
	err := eng.Update(func(tx txn) error {
		require.NoError(t, eng.CreateFiscalPeriod(tx, &FiscalPeriod{
			PeriodCode: "2026-01",
			StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			Status:     PeriodOpen,
		}))

		byCode, ok, err := eng.store.findPeriodByCode(tx, "2026-01")
		require.NoError(t, err)
		require.True(t, ok)

		byDate, ok, err := eng.store.findPeriodForDate(tx, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, byCode.ID, byDate.ID)

		_, ok, err = eng.store.findPeriodForDate(tx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}
