package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// MarketplaceSurchargePercent is added to every marketplace list price before tiering
	MarketplaceSurchargePercent = decimal.NewFromInt(7)

	// MarketplaceTierThreshold splits the two marketplace markup tiers (in source currency)
	MarketplaceTierThreshold  = decimal.NewFromInt(100)
	MarketplaceLowTierMarkup  = decimal.NewFromInt(80)
	MarketplaceHighTierMarkup = decimal.NewFromInt(120)
)

// MarketplaceResult adds the surcharge step to a regular result
type MarketplaceResult struct {
	Result
	ListPrice     decimal.Decimal `json:"list_price"`
	EffectiveCost decimal.Decimal `json:"effective_cost"`
}

// LocalDistributor prices a distributor invoice line. The markup comes from the
// product's category and does not depend on cost.
func LocalDistributor(cost, rate, gctPercent, categoryMarkup decimal.Decimal, rounding Rounding) (Result, error) {
	return ComputePrice(Input{
		Cost:           cost,
		ExchangeRate:   rate,
		TaxRatePercent: gctPercent,
		MarkupPercent:  categoryMarkup,
		Rounding:       rounding,
		Order:          OrderConvertTaxMarkup,
	})
}

// EffectiveCost applies the marketplace surcharge to a list price
func EffectiveCost(listPrice decimal.Decimal) decimal.Decimal {
	return listPrice.Mul(hundred.Add(MarketplaceSurchargePercent)).Div(hundred)
}

// MarketplaceMarkup picks the tier for an effective cost. Exactly the threshold falls in the upper tier.
func MarketplaceMarkup(effectiveCost decimal.Decimal) decimal.Decimal {
	if effectiveCost.LessThan(MarketplaceTierThreshold) {
		return MarketplaceLowTierMarkup
	}
	return MarketplaceHighTierMarkup
}

// Marketplace prices an item found on an external marketplace listing
func Marketplace(listPrice, rate, taxPercent decimal.Decimal, rounding Rounding) (MarketplaceResult, error) {
	if listPrice.IsNegative() {
		return MarketplaceResult{}, fmt.Errorf("%w: list price must not be negative", ErrInvalidInput)
	}
	effective := EffectiveCost(listPrice)
	res, err := ComputePrice(Input{
		Cost:           effective,
		ExchangeRate:   rate,
		TaxRatePercent: taxPercent,
		MarkupPercent:  MarketplaceMarkup(effective),
		Rounding:       rounding,
		Order:          OrderConvertMarkupTax,
	})
	if err != nil {
		return MarketplaceResult{}, err
	}
	return MarketplaceResult{Result: res, ListPrice: listPrice, EffectiveCost: effective}, nil
}
