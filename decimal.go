package ledger

import (
	"fmt"
	"math/big"
	"strings"
)

// decimalScale is the number of fractional digits every Decimal carries
// internally, matching spec.md's "up to 9 fractional digits" ceiling.
const decimalScale = 9

var scaleFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(decimalScale), nil)

// Decimal is an arbitrary-precision signed fixed-point number with 9
// fractional digits, stored as an integer scaled by 10^9. The number of
// integer digits is not bounded; no 38-significant-digit limit is
// enforced. No third-party decimal library appears in the retrieval pack
// (see DESIGN.md), so this wraps math/big.Int behind one narrow type so
// every arithmetic call site stays agnostic to the representation.
type Decimal struct {
	unscaled *big.Int // value * 10^decimalScale
}

// Zero returns the additive identity.
func Zero() Decimal { return Decimal{unscaled: big.NewInt(0)} }

// NewDecimalFromInt builds a Decimal representing an exact integer.
func NewDecimalFromInt(v int64) Decimal {
	return Decimal{unscaled: new(big.Int).Mul(big.NewInt(v), scaleFactor)}
}

// ParseDecimal parses a base-10 string with at most decimalScale
// fractional digits, e.g. "33.333", "-0.5", "100".
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Decimal{}, fmt.Errorf("decimal: empty string")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > decimalScale {
		return Decimal{}, fmt.Errorf("decimal: too many fractional digits in %q", s)
	}
	fracPart = fracPart + strings.Repeat("0", decimalScale-len(fracPart))

	combined := intPart + fracPart
	unscaled, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("decimal: invalid number %q", s)
	}
	if neg {
		unscaled.Neg(unscaled)
	}
	return Decimal{unscaled: unscaled}, nil
}

func (d Decimal) ensure() *big.Int {
	if d.unscaled == nil {
		return big.NewInt(0)
	}
	return d.unscaled
}

func (d Decimal) Add(o Decimal) Decimal {
	return Decimal{unscaled: new(big.Int).Add(d.ensure(), o.ensure())}
}

func (d Decimal) Sub(o Decimal) Decimal {
	return Decimal{unscaled: new(big.Int).Sub(d.ensure(), o.ensure())}
}

func (d Decimal) Neg() Decimal {
	return Decimal{unscaled: new(big.Int).Neg(d.ensure())}
}

func (d Decimal) Abs() Decimal {
	return Decimal{unscaled: new(big.Int).Abs(d.ensure())}
}

func (d Decimal) Cmp(o Decimal) int {
	return d.ensure().Cmp(o.ensure())
}

func (d Decimal) IsZero() bool     { return d.ensure().Sign() == 0 }
func (d Decimal) IsPositive() bool { return d.ensure().Sign() > 0 }
func (d Decimal) IsNegative() bool { return d.ensure().Sign() < 0 }

// RoundHalfUp rounds to the given number of fractional digits using the
// only sanctioned rounding function in the system (spec §4.3): ties round
// away from zero for positive values and toward zero's mirror for
// negative values (i.e. away from zero), matching conventional HALF-UP.
func (d Decimal) RoundHalfUp(decimals int) Decimal {
	if decimals >= decimalScale {
		return d
	}
	if decimals < 0 {
		decimals = 0
	}
	dropExp := decimalScale - decimals
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dropExp)), nil)

	v := d.ensure()
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)

	quotient := new(big.Int)
	remainder := new(big.Int)
	quotient.QuoRem(abs, divisor, remainder)

	half := new(big.Int).Rsh(divisor, 0)
	half = new(big.Int).Div(divisor, big.NewInt(2))
	if remainder.Cmp(half) >= 0 {
		quotient.Add(quotient, big.NewInt(1))
	}

	rounded := new(big.Int).Mul(quotient, divisor)
	if neg {
		rounded.Neg(rounded)
	}
	return Decimal{unscaled: rounded}
}

// String renders the minimal canonical decimal form: no trailing zeros
// beyond what is needed, a leading '-' only for negative values, always
// at least one integer digit.
func (d Decimal) String() string {
	v := d.ensure()
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)

	s := abs.String()
	for len(s) <= decimalScale {
		s = "0" + s
	}
	intPart := s[:len(s)-decimalScale]
	fracPart := s[len(s)-decimalScale:]
	fracPart = strings.TrimRight(fracPart, "0")

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// StringFixed renders with exactly `decimals` fractional digits, rounding
// is the caller's responsibility (use RoundHalfUp first).
func (d Decimal) StringFixed(decimals int) string {
	v := d.ensure()
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)

	s := abs.String()
	for len(s) <= decimalScale {
		s = "0" + s
	}
	intPart := s[:len(s)-decimalScale]
	fracPart := s[len(s)-decimalScale:]
	if decimals <= len(fracPart) {
		fracPart = fracPart[:decimals]
	} else {
		fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	}

	out := intPart
	if decimals > 0 {
		out += "." + fracPart
	}
	if neg && !(intPart == "0" && strings.Trim(fracPart, "0") == "") {
		out = "-" + out
	}
	return out
}

// MarshalJSON encodes the decimal as its minimal canonical string, quoted,
// so JSON consumers never lose precision to float64.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
