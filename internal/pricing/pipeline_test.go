package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketplaceMarkup_TierBoundary(t *testing.T) {
	assertDecimal(t, "120", MarketplaceMarkup(d("100")))
	assertDecimal(t, "80", MarketplaceMarkup(d("99.99")))
	assertDecimal(t, "80", MarketplaceMarkup(d("0")))
	assertDecimal(t, "120", MarketplaceMarkup(d("5000")))
}

func TestMarketplace_SurchargeTipsIntoUpperTier(t *testing.T) {
	res, err := Marketplace(d("93.46"), d("1"), d("0"), RoundNone)
	require.NoError(t, err)

	assertDecimal(t, "100.0022", res.EffectiveCost)
	assertDecimal(t, "120", res.MarkupPercent)
	assertDecimal(t, "93.46", res.ListPrice)
	assert.Equal(t, OrderConvertMarkupTax, res.Order)
}

func TestMarketplace_LowerTier(t *testing.T) {
	res, err := Marketplace(d("50"), d("1"), d("15"), RoundNone)
	require.NoError(t, err)

	assertDecimal(t, "53.5", res.EffectiveCost)
	assertDecimal(t, "80", res.MarkupPercent)
	assertDecimal(t, "42.8", res.MarkupAmount)
	assertDecimal(t, "14.445", res.TaxAmount)
	assertDecimal(t, "110.745", res.FinalPrice)
}

func TestMarketplace_JustBelowThreshold(t *testing.T) {
	// 93.45 * 1.07 = 99.9915
	res, err := Marketplace(d("93.45"), d("162"), d("15"), RoundNearestInteger)
	require.NoError(t, err)
	assertDecimal(t, "80", res.MarkupPercent)
}

func TestMarketplace_InvalidInput(t *testing.T) {
	_, err := Marketplace(d("-1"), d("162"), d("15"), RoundNone)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Marketplace(d("10"), d("0"), d("15"), RoundNone)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLocalDistributor_MarkupIndependentOfCost(t *testing.T) {
	cheap, err := LocalDistributor(d("1"), d("162"), d("15"), d("30"), RoundNone)
	require.NoError(t, err)
	pricey, err := LocalDistributor(d("1000"), d("162"), d("15"), d("30"), RoundNone)
	require.NoError(t, err)

	assertDecimal(t, "30", cheap.MarkupPercent)
	assertDecimal(t, "30", pricey.MarkupPercent)
	assert.Equal(t, OrderConvertTaxMarkup, cheap.Order)
}
