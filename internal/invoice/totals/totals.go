// Package totals computes invoice money values.
//
// Amounts are carried at full decimal precision through every step and only
// rounded by Round when they are presented or sent to a gateway.
package totals

import (
	"strings"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// ParseDiscountType defaults unknown or empty values to percentage.
func ParseDiscountType(raw string) DiscountType {
	if DiscountType(strings.ToLower(strings.TrimSpace(raw))) == DiscountFixed {
		return DiscountFixed
	}
	return DiscountPercentage
}

type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
}

type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type Result struct {
	LineTotals     []decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Compute derives subtotal, discount, tax and total. The discount is taken
// from the subtotal and capped at it; tax is charged on the discounted amount.
func Compute(lines []Line, discount Discount, taxRate decimal.Decimal) Result {
	res := Result{
		LineTotals: make([]decimal.Decimal, len(lines)),
		Subtotal:   decimal.Zero,
	}
	for i, line := range lines {
		lineTotal := nonNegative(line.Quantity).Mul(nonNegative(line.UnitPrice))
		res.LineTotals[i] = lineTotal
		res.Subtotal = res.Subtotal.Add(lineTotal)
	}

	value := nonNegative(discount.Value)
	switch discount.Type {
	case DiscountFixed:
		res.DiscountAmount = value
	default:
		res.DiscountAmount = res.Subtotal.Mul(value).Div(hundred)
	}
	if res.DiscountAmount.GreaterThan(res.Subtotal) {
		res.DiscountAmount = res.Subtotal
	}

	taxable := res.Subtotal.Sub(res.DiscountAmount)
	res.TaxAmount = taxable.Mul(nonNegative(taxRate)).Div(hundred)
	res.Total = taxable.Add(res.TaxAmount)
	return res
}

// Coerce parses form input leniently. Anything that is not a finite,
// non-negative number becomes zero.
func Coerce(raw string) decimal.Decimal {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return nonNegative(parsed)
}

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders a presentation string with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// zeroDecimal lists the currencies charged in whole units.
var zeroDecimal = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {},
	"krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {},
	"vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// Exponent returns the number of minor-unit digits for an ISO currency code.
func Exponent(currency string) int32 {
	if _, ok := zeroDecimal[strings.ToLower(strings.TrimSpace(currency))]; ok {
		return 0
	}
	return 2
}

// MinorUnits converts an amount to the smallest unit of currency, rounding
// half away from zero at the currency's exponent.
func MinorUnits(d decimal.Decimal, currency string) int64 {
	exp := Exponent(currency)
	return d.Round(exp).Shift(exp).IntPart()
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
