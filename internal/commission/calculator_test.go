package commission

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kumarav1nash/vendorpro-engine/internal/domain"
	"github.com/kumarav1nash/vendorpro-engine/internal/store"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculatePercentageOfSales(t *testing.T) {
	lines := []Line{
		{Quantity: 2, SoldAt: dec("100"), CatalogPrice: dec("80")},
	}
	rule := domain.CommissionRule{Kind: domain.RuleKindPercentageOfSales, Value: dec("10")}

	amount, err := Calculate(lines, rule)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if amount.String() != "20" {
		t.Fatalf("expected 20, got %s", amount)
	}
}

func TestCalculateFixedAmountPerUnit(t *testing.T) {
	lines := []Line{
		{Quantity: 3, SoldAt: dec("40"), CatalogPrice: dec("30")},
		{Quantity: 2, SoldAt: dec("15"), CatalogPrice: dec("12")},
	}
	rule := domain.CommissionRule{Kind: domain.RuleKindFixedAmount, Value: dec("5")}

	amount, err := Calculate(lines, rule)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if amount.String() != "25" {
		t.Fatalf("expected 25, got %s", amount)
	}
}

func TestCalculatePercentageOnDifference(t *testing.T) {
	lines := []Line{
		{Quantity: 1, SoldAt: dec("150"), CatalogPrice: dec("100")},
	}
	rule := domain.CommissionRule{Kind: domain.RuleKindPercentageOnDifference, Value: dec("20")}

	amount, err := Calculate(lines, rule)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if amount.String() != "10" {
		t.Fatalf("expected 10, got %s", amount)
	}
}

func TestCalculateNegativeDifferenceClampsToZero(t *testing.T) {
	lines := []Line{
		{Quantity: 2, SoldAt: dec("40"), CatalogPrice: dec("60")},
	}
	rule := domain.CommissionRule{Kind: domain.RuleKindPercentageOnDifference, Value: dec("20")}

	amount, err := Calculate(lines, rule)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !amount.IsZero() {
		t.Fatalf("expected zero, got %s", amount)
	}
}

func TestCalculateRoundsHalfUpToCents(t *testing.T) {
	lines := []Line{
		{Quantity: 1, SoldAt: dec("33.33"), CatalogPrice: dec("30")},
	}
	rule := domain.CommissionRule{Kind: domain.RuleKindPercentageOfSales, Value: dec("7.5")}

	amount, err := Calculate(lines, rule)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	// 33.33 * 7.5% = 2.49975 -> 2.50
	if amount.String() != "2.5" {
		t.Fatalf("expected 2.5, got %s", amount)
	}
}

func TestCalculateUnknownKind(t *testing.T) {
	lines := []Line{{Quantity: 1, SoldAt: dec("10"), CatalogPrice: dec("8")}}
	rule := domain.CommissionRule{Kind: "tiered", Value: dec("10")}

	_, err := Calculate(lines, rule)
	if !errors.Is(err, store.ErrInvalidCommissionRule) {
		t.Fatalf("expected ErrInvalidCommissionRule, got %v", err)
	}
}

func TestCalculateEmptyLines(t *testing.T) {
	rule := domain.CommissionRule{Kind: domain.RuleKindFixedAmount, Value: dec("5")}

	amount, err := Calculate(nil, rule)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !amount.IsZero() {
		t.Fatalf("expected zero for empty sale, got %s", amount)
	}
}
