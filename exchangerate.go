package ledger

import "time"

// maxExchangeRate is the upper bound spec §3 (I6) mandates: "positive,
// > 0 and <= 10^6".
var maxExchangeRate = mustDecimal("1000000")

// ExchangeRate is an additive, append-only FX quote: once referenced by
// a journal line its Rate is frozen and the row cannot be deleted (I6).
// Supersession is modeled by inserting a new row, never mutating this one.
type ExchangeRate struct {
	ID           ID
	FromCurrency Currency
	ToCurrency   Currency
	Rate         Decimal
	EffectiveAt  time.Time
	Source       string
}

// validateNewExchangeRate enforces I6's positivity/ceiling and B5's
// rejection of zero or negative rates (open question #2: no inverse-rate
// arbitrage check is performed — see DESIGN.md).
func validateNewExchangeRate(r *ExchangeRate) error {
	if !r.Rate.IsPositive() {
		return newErr(ErrInvalidExchangeRate, "rate must be positive, got %s", r.Rate.String())
	}
	if r.Rate.Cmp(maxExchangeRate) > 0 {
		return newErr(ErrInvalidExchangeRate, "rate %s exceeds maximum %s", r.Rate.String(), maxExchangeRate.String())
	}
	if !IsValidCurrency(r.FromCurrency) || !IsValidCurrency(r.ToCurrency) {
		return newErr(ErrCurrencyInvalid, "unknown currency in exchange rate %s->%s", r.FromCurrency, r.ToCurrency)
	}
	return nil
}
