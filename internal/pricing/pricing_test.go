package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestComputePrice_LocalExample(t *testing.T) {
	res, err := ComputePrice(Input{
		Cost:           d("10"),
		ExchangeRate:   d("162"),
		TaxRatePercent: d("15"),
		MarkupPercent:  d("30"),
		Rounding:       RoundNone,
		Order:          OrderConvertTaxMarkup,
	})
	require.NoError(t, err)

	assertDecimal(t, "1620", res.ConvertedCost)
	assertDecimal(t, "243", res.TaxAmount)
	assertDecimal(t, "558.9", res.MarkupAmount)
	assertDecimal(t, "2421.90", res.Unrounded)
	assertDecimal(t, "2421.90", res.FinalPrice)
}

func TestComputePrice_Rounding(t *testing.T) {
	tests := []struct {
		mode Rounding
		want string
	}{
		{RoundNone, "2421.9"},
		{RoundNearestInteger, "2422"},
		{RoundNearestHundred, "2400"},
		{"", "2421.9"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			res, err := LocalDistributor(d("10"), d("162"), d("15"), d("30"), tt.mode)
			require.NoError(t, err)
			assertDecimal(t, tt.want, res.FinalPrice)
			assertDecimal(t, "2421.9", res.Unrounded)
		})
	}
}

func TestComputePrice_InvalidInput(t *testing.T) {
	valid := Input{Cost: d("10"), ExchangeRate: d("1"), TaxRatePercent: d("15"), MarkupPercent: d("30")}

	tests := []struct {
		name   string
		mutate func(in *Input)
	}{
		{"negative cost", func(in *Input) { in.Cost = d("-0.01") }},
		{"zero rate", func(in *Input) { in.ExchangeRate = decimal.Zero }},
		{"negative rate", func(in *Input) { in.ExchangeRate = d("-162") }},
		{"negative tax", func(in *Input) { in.TaxRatePercent = d("-1") }},
		{"negative markup", func(in *Input) { in.MarkupPercent = d("-5") }},
		{"unknown rounding", func(in *Input) { in.Rounding = "nearest-ten" }},
		{"unknown order", func(in *Input) { in.Order = "tax-first" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			res, err := ComputePrice(in)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Equal(t, Result{}, res)
		})
	}
}

func TestComputePrice_ZeroCostIsAllowed(t *testing.T) {
	res, err := ComputePrice(Input{Cost: decimal.Zero, ExchangeRate: d("162"), TaxRatePercent: d("15"), MarkupPercent: d("30")})
	require.NoError(t, err)
	assert.True(t, res.FinalPrice.IsZero())
}

func TestComputePrice_Monotonic(t *testing.T) {
	base := Input{Cost: d("10"), ExchangeRate: d("162"), TaxRatePercent: d("15"), MarkupPercent: d("30")}
	bumps := map[string]func(in *Input, step decimal.Decimal){
		"cost":   func(in *Input, step decimal.Decimal) { in.Cost = in.Cost.Add(step) },
		"rate":   func(in *Input, step decimal.Decimal) { in.ExchangeRate = in.ExchangeRate.Add(step) },
		"tax":    func(in *Input, step decimal.Decimal) { in.TaxRatePercent = in.TaxRatePercent.Add(step) },
		"markup": func(in *Input, step decimal.Decimal) { in.MarkupPercent = in.MarkupPercent.Add(step) },
	}

	for name, bump := range bumps {
		for _, order := range []Order{OrderConvertTaxMarkup, OrderConvertMarkupTax} {
			for _, mode := range []Rounding{RoundNone, RoundNearestInteger, RoundNearestHundred} {
				in := base
				in.Order = order
				in.Rounding = mode
				prev, err := ComputePrice(in)
				require.NoError(t, err)
				for i := 0; i < 20; i++ {
					bump(&in, d("0.75"))
					next, err := ComputePrice(in)
					require.NoError(t, err)
					assert.Falsef(t, next.FinalPrice.LessThan(prev.FinalPrice),
						"%s/%s/%s: price dropped from %s to %s", name, order, mode, prev.FinalPrice, next.FinalPrice)
					assert.False(t, next.FinalPrice.IsNegative())
					prev = next
				}
			}
		}
	}
}

func TestComputePrice_Deterministic(t *testing.T) {
	in := Input{Cost: d("19.99"), ExchangeRate: d("157.35"), TaxRatePercent: d("15"), MarkupPercent: d("45"), Rounding: RoundNearestInteger}
	first, err := ComputePrice(in)
	require.NoError(t, err)
	second, err := ComputePrice(in)
	require.NoError(t, err)
	assert.True(t, first.FinalPrice.Equal(second.FinalPrice))
	assert.True(t, first.Unrounded.Equal(second.Unrounded))
}

func TestComputePrice_OrderOnlyChangesBreakdown(t *testing.T) {
	in := Input{Cost: d("10"), ExchangeRate: d("162"), TaxRatePercent: d("15"), MarkupPercent: d("30")}

	in.Order = OrderConvertTaxMarkup
	taxFirst, err := ComputePrice(in)
	require.NoError(t, err)
	in.Order = OrderConvertMarkupTax
	markupFirst, err := ComputePrice(in)
	require.NoError(t, err)

	assertDecimal(t, "243", taxFirst.TaxAmount)
	assertDecimal(t, "486", markupFirst.MarkupAmount)
	assertDecimal(t, "315.9", markupFirst.TaxAmount)
	assert.True(t, taxFirst.Unrounded.Equal(markupFirst.Unrounded))
}

func TestParseRounding(t *testing.T) {
	for in, want := range map[string]Rounding{
		"":                 RoundNone,
		"none":             RoundNone,
		"Nearest-Integer":  RoundNearestInteger,
		" nearest-hundred": RoundNearestHundred,
	} {
		got, err := ParseRounding(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseRounding("banker")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
