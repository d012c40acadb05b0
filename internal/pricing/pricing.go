// Package pricing turns a supplier cost into a sale price.
//
// Every price goes through the same three steps: convert the cost into the
// target currency, add tax, add markup. The order of the last two is fixed per
// pipeline and reported in the breakdown; rounding happens exactly once, at the end.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned before any arithmetic when an input is out of range
var ErrInvalidInput = errors.New("invalid pricing input")

// Rounding selects how the final price is rounded
type Rounding string

const (
	RoundNone           Rounding = "none"
	RoundNearestInteger Rounding = "nearest-integer"
	RoundNearestHundred Rounding = "nearest-hundred"
)

// ParseRounding accepts the configured rounding names. Empty means none.
func ParseRounding(s string) (Rounding, error) {
	switch r := Rounding(strings.ToLower(strings.TrimSpace(s))); r {
	case "", RoundNone:
		return RoundNone, nil
	case RoundNearestInteger, RoundNearestHundred:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown rounding mode %q", ErrInvalidInput, s)
	}
}

// Apply rounds v according to the mode. Halves round away from zero.
func (r Rounding) Apply(v decimal.Decimal) decimal.Decimal {
	switch r {
	case RoundNearestInteger:
		return v.Round(0)
	case RoundNearestHundred:
		return v.Round(-2)
	default:
		return v
	}
}

// Order names the sequence in which tax and markup are applied after conversion
type Order string

const (
	// OrderConvertTaxMarkup is used by the local distributor pipeline
	OrderConvertTaxMarkup Order = "convert-tax-markup"
	// OrderConvertMarkupTax is used by the marketplace pipeline
	OrderConvertMarkupTax Order = "convert-markup-tax"
)

var hundred = decimal.NewFromInt(100)

// Input holds everything ComputePrice needs. Percentages are whole numbers (15 = 15%).
type Input struct {
	Cost           decimal.Decimal
	ExchangeRate   decimal.Decimal
	TaxRatePercent decimal.Decimal
	MarkupPercent  decimal.Decimal
	Rounding       Rounding
	Order          Order
}

// Result is the final price and how it was reached
type Result struct {
	ConvertedCost decimal.Decimal `json:"converted_cost"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	MarkupAmount  decimal.Decimal `json:"markup_amount"`
	TaxPercent    decimal.Decimal `json:"tax_percent"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
	Unrounded     decimal.Decimal `json:"unrounded"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	Rounding      Rounding        `json:"rounding"`
	Order         Order           `json:"order"`
}

func (in Input) validate() error {
	switch {
	case in.Cost.IsNegative():
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidInput)
	case !in.ExchangeRate.IsPositive():
		return fmt.Errorf("%w: exchange rate must be greater than zero", ErrInvalidInput)
	case in.TaxRatePercent.IsNegative():
		return fmt.Errorf("%w: tax rate must not be negative", ErrInvalidInput)
	case in.MarkupPercent.IsNegative():
		return fmt.Errorf("%w: markup must not be negative", ErrInvalidInput)
	}
	switch in.Rounding {
	case "", RoundNone, RoundNearestInteger, RoundNearestHundred:
	default:
		return fmt.Errorf("%w: unknown rounding mode %q", ErrInvalidInput, in.Rounding)
	}
	switch in.Order {
	case "", OrderConvertTaxMarkup, OrderConvertMarkupTax:
	default:
		return fmt.Errorf("%w: unknown order %q", ErrInvalidInput, in.Order)
	}
	return nil
}

// ComputePrice validates the input and returns the priced result. It never
// partially applies: an error means nothing was computed.
func ComputePrice(in Input) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	if in.Rounding == "" {
		in.Rounding = RoundNone
	}
	if in.Order == "" {
		in.Order = OrderConvertTaxMarkup
	}

	converted := in.Cost.Mul(in.ExchangeRate)
	taxFactor := in.TaxRatePercent.Div(hundred)
	markupFactor := in.MarkupPercent.Div(hundred)

	var taxAmount, markupAmount decimal.Decimal
	switch in.Order {
	case OrderConvertMarkupTax:
		markupAmount = converted.Mul(markupFactor)
		taxAmount = converted.Add(markupAmount).Mul(taxFactor)
	default:
		taxAmount = converted.Mul(taxFactor)
		markupAmount = converted.Add(taxAmount).Mul(markupFactor)
	}

	unrounded := converted.Add(taxAmount).Add(markupAmount)
	return Result{
		ConvertedCost: converted,
		TaxAmount:     taxAmount,
		MarkupAmount:  markupAmount,
		TaxPercent:    in.TaxRatePercent,
		MarkupPercent: in.MarkupPercent,
		Unrounded:     unrounded,
		FinalPrice:    in.Rounding.Apply(unrounded),
		Rounding:      in.Rounding,
		Order:         in.Order,
	}, nil
}
