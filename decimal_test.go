package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalParseAndString(t *testing.T) {
	cases := []struct{ in, out string }{
		{"100", "100"},
		{"100.00", "100"},
		{"33.333", "33.333"},
		{"-0.5", "-0.5"},
		{"0.000000001", "0.000000001"},
		{"0", "0"},
	}
	for _, c := range cases {
		d, err := ParseDecimal(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.out, d.String())
	}
}

func TestDecimalParseRejectsTooManyFractionalDigits(t *testing.T) {
	_, err := ParseDecimal("1.0000000001")
	require.Error(t, err)
}

func TestDecimalRoundHalfUp(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		out      string
	}{
		{"33.333", 2, "33.33"},
		{"33.335", 2, "33.34"},
		{"33.345", 2, "33.35"},
		{"-33.335", 2, "-33.34"},
		{"100", 2, "100"},
		{"0.005", 2, "0.01"},
	}
	for _, c := range cases {
		d := mustDecimal(c.in)
		got := d.RoundHalfUp(c.decimals)
		assert.Equal(t, c.out, got.String(), "round(%s, %d)", c.in, c.decimals)
	}
}

func TestDecimalArithmetic(t *testing.T) {
	a := mustDecimal("10.5")
	b := mustDecimal("3.25")
	assert.Equal(t, "13.75", a.Add(b).String())
	assert.Equal(t, "7.25", a.Sub(b).String())
	assert.Equal(t, "-10.5", a.Neg().String())
	assert.Equal(t, "10.5", a.Neg().Abs().String())
	assert.True(t, Zero().IsZero())
	assert.True(t, a.IsPositive())
	assert.True(t, a.Neg().IsNegative())
	assert.Equal(t, 1, a.Cmp(b))
}

func TestDecimalStringFixed(t *testing.T) {
	d := mustDecimal("33.3")
	assert.Equal(t, "33.30", d.StringFixed(2))
	assert.Equal(t, "33", d.StringFixed(0))
}

func TestDecimalJSONRoundTrip(t *testing.T) {
	d := mustDecimal("42.5")
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"42.5"`, string(b))

	var out Decimal
	require.NoError(t, out.UnmarshalJSON(b))
	assert.Equal(t, 0, d.Cmp(out))
}
