// Package commission computes commission amounts from sale lines and a
// rule. It is purely arithmetic: no storage, no clocks, no I/O.
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kumarav1nash/vendorpro-engine/internal/domain"
	"github.com/kumarav1nash/vendorpro-engine/internal/store"
)

// Line is one sale item flattened to what the formulas need.
// CatalogPrice is the product's catalog selling price at the moment of
// calculation; percentage_on_difference measures the negotiated total
// against it.
type Line struct {
	Quantity     int
	SoldAt       decimal.Decimal
	CatalogPrice decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Calculate applies rule to lines and returns the commission amount
// rounded half-up to two decimal places. The result is never negative:
// a sale below catalog price under percentage_on_difference clamps to
// zero rather than producing a clawback.
func Calculate(lines []Line, rule domain.CommissionRule) (decimal.Decimal, error) {
	total := decimal.Zero
	quantity := int64(0)
	catalogTotal := decimal.Zero
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		total = total.Add(line.SoldAt.Mul(qty))
		catalogTotal = catalogTotal.Add(line.CatalogPrice.Mul(qty))
		quantity += int64(line.Quantity)
	}

	var amount decimal.Decimal
	switch rule.Kind {
	case domain.RuleKindPercentageOfSales:
		amount = total.Mul(rule.Value).Div(hundred)
	case domain.RuleKindFixedAmount:
		amount = rule.Value.Mul(decimal.NewFromInt(quantity))
	case domain.RuleKindPercentageOnDifference:
		diff := total.Sub(catalogTotal)
		if diff.IsNegative() {
			diff = decimal.Zero
		}
		amount = diff.Mul(rule.Value).Div(hundred)
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown kind %q", store.ErrInvalidCommissionRule, rule.Kind)
	}

	return amount.Round(2), nil
}
