package ledger

// Currency is an ISO-4217 code (e.g. "USD", "EGP"), carried verbatim from
// the teacher's accounting.go.
type Currency string

// currencyInfo is the static per-currency row: decimal places and the
// rounding tolerance below which a debit/credit mismatch may be absorbed
// by a synthetic rounding line (spec §4.3).
type currencyInfo struct {
	Decimals  int
	Tolerance Decimal
}

// CurrencyRegistry is the immutable, compile-time currency table (spec
// §9: "an immutable compile-time table"). It is process-wide and never
// mutated at runtime.
var currencyRegistry = map[Currency]currencyInfo{
	"USD": {Decimals: 2, Tolerance: mustDecimal("0.02")},
	"EUR": {Decimals: 2, Tolerance: mustDecimal("0.02")},
	"GBP": {Decimals: 2, Tolerance: mustDecimal("0.02")},
	"EGP": {Decimals: 2, Tolerance: mustDecimal("0.02")},
	"CHF": {Decimals: 2, Tolerance: mustDecimal("0.02")},
	"JPY": {Decimals: 0, Tolerance: mustDecimal("1")},
	"KWD": {Decimals: 3, Tolerance: mustDecimal("0.002")},
	"BHD": {Decimals: 3, Tolerance: mustDecimal("0.002")},
}

func mustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// CurrencyDecimals returns the number of fractional digits for a
// currency, or ok=false if the currency is not registered.
func CurrencyDecimals(c Currency) (int, bool) {
	info, ok := currencyRegistry[c]
	if !ok {
		return 0, false
	}
	return info.Decimals, true
}

// CurrencyTolerance returns the rounding tolerance for a currency, or
// ok=false if unregistered.
func CurrencyTolerance(c Currency) (Decimal, bool) {
	info, ok := currencyRegistry[c]
	if !ok {
		return Decimal{}, false
	}
	return info.Tolerance, true
}

// IsValidCurrency reports whether c is a known ISO-4217 code in the
// registry.
func IsValidCurrency(c Currency) bool {
	_, ok := currencyRegistry[c]
	return ok
}

// RegisteredCurrencies returns all known currency codes, sorted, for
// reference-snapshot content hashing.
func RegisteredCurrencies() []Currency {
	out := make([]Currency, 0, len(currencyRegistry))
	for c := range currencyRegistry {
		out = append(out, c)
	}
	sortCurrencies(out)
	return out
}

func sortCurrencies(cs []Currency) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j-1] > cs[j]; j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}
