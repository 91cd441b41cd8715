package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kumarav1nash/vendorpro-engine/internal/domain"
	"github.com/kumarav1nash/vendorpro-engine/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("SEED_OWNER_PASSWORD", "test-owner-pass")
	t.Setenv("SEED_SALESMAN_PASSWORD", "test-rep-pass")
	return NewSeeded()
}

func mustSale(t *testing.T, s *Store, productID string, qty int) *domain.Sale {
	t.Helper()
	sale, err := s.CreateSale(context.Background(), domain.Sale{
		ShopID: "main-shop",
		Origin: domain.SalesmanSale("rep_seed_1"),
		Items: []domain.SaleItem{
			{ProductID: productID, Quantity: qty, SoldAt: decimal.NewFromInt(100)},
		},
		TotalAmount: decimal.NewFromInt(int64(qty) * 100),
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	return sale
}

func TestCreateSaleReservesStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before, err := s.GetProduct(ctx, "prod_seed_1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}

	mustSale(t, s, "prod_seed_1", 3)

	after, err := s.GetProduct(ctx, "prod_seed_1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if after.StockQuantity != before.StockQuantity-3 {
		t.Fatalf("expected stock %d, got %d", before.StockQuantity-3, after.StockQuantity)
	}
}

func TestCreateSaleUnknownProductIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateSale(context.Background(), domain.Sale{
		ShopID: "main-shop",
		Origin: domain.OwnerDirect(),
		Items: []domain.SaleItem{
			{ProductID: "prod_missing", Quantity: 1, SoldAt: decimal.NewFromInt(10)},
		},
		TotalAmount: decimal.NewFromInt(10),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}
}

func TestCreateSaleInsufficientStockLeavesAllItemsUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1, _ := s.GetProduct(ctx, "prod_seed_1")
	p2, _ := s.GetProduct(ctx, "prod_seed_2")

	_, err := s.CreateSale(ctx, domain.Sale{
		ShopID: "main-shop",
		Origin: domain.OwnerDirect(),
		Items: []domain.SaleItem{
			{ProductID: "prod_seed_1", Quantity: 1, SoldAt: decimal.NewFromInt(480)},
			{ProductID: "prod_seed_2", Quantity: p2.StockQuantity + 1, SoldAt: decimal.NewFromInt(165)},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	p1After, _ := s.GetProduct(ctx, "prod_seed_1")
	p2After, _ := s.GetProduct(ctx, "prod_seed_2")
	if p1After.StockQuantity != p1.StockQuantity || p2After.StockQuantity != p2.StockQuantity {
		t.Fatalf("partial reservation leaked: %d/%d -> %d/%d",
			p1.StockQuantity, p2.StockQuantity, p1After.StockQuantity, p2After.StockQuantity)
	}
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	product, err := s.GetProduct(ctx, "prod_seed_3")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	initial := product.StockQuantity

	workers := initial + 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateSale(ctx, domain.Sale{
				ShopID: "main-shop",
				Origin: domain.SalesmanSale("rep_seed_1"),
				Items: []domain.SaleItem{
					{ProductID: "prod_seed_3", Quantity: 1, SoldAt: decimal.NewFromInt(350)},
				},
				TotalAmount: decimal.NewFromInt(350),
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != initial {
		t.Fatalf("expected exactly %d sales to succeed, got %d", initial, succeeded)
	}
	after, _ := s.GetProduct(ctx, "prod_seed_3")
	if after.StockQuantity != 0 {
		t.Fatalf("expected zero stock, got %d", after.StockQuantity)
	}
}

func TestApproveSaleIsExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sale := mustSale(t, s, "prod_seed_1", 2)
	at := time.Now().UTC()

	commission := &domain.Commission{
		SalesmanID: "rep_seed_1",
		ShopID:     "main-shop",
		Amount:     decimal.NewFromInt(20),
	}
	approved, err := s.ApproveSale(ctx, sale.ID, commission, at)
	if err != nil {
		t.Fatalf("ApproveSale: %v", err)
	}
	if approved.Status != domain.SaleStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}

	if _, err := s.ApproveSale(ctx, sale.ID, commission, at); !errors.Is(err, store.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved on second approve, got %v", err)
	}
	if _, err := s.RejectSale(ctx, sale.ID, "late", at); !errors.Is(err, store.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved on reject after approve, got %v", err)
	}

	written, err := s.GetCommissionBySale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetCommissionBySale: %v", err)
	}
	if !written.Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected commission 20, got %s", written.Amount)
	}
}

func TestRejectSaleRestoresStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before, _ := s.GetProduct(ctx, "prod_seed_2")
	sale := mustSale(t, s, "prod_seed_2", 4)

	rejected, err := s.RejectSale(ctx, sale.ID, domain.DefaultRejectionReason, time.Now().UTC())
	if err != nil {
		t.Fatalf("RejectSale: %v", err)
	}
	if rejected.Status != domain.SaleStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectionReason != domain.DefaultRejectionReason {
		t.Fatalf("unexpected reason %q", rejected.RejectionReason)
	}

	after, _ := s.GetProduct(ctx, "prod_seed_2")
	if after.StockQuantity != before.StockQuantity {
		t.Fatalf("expected stock restored to %d, got %d", before.StockQuantity, after.StockQuantity)
	}
}

func TestMarkCommissionPaidIdempotencyGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sale := mustSale(t, s, "prod_seed_1", 1)

	at := time.Now().UTC()
	_, err := s.ApproveSale(ctx, sale.ID, &domain.Commission{
		SalesmanID: "rep_seed_1",
		ShopID:     "main-shop",
		Amount:     decimal.NewFromInt(10),
	}, at)
	if err != nil {
		t.Fatalf("ApproveSale: %v", err)
	}

	commission, err := s.GetCommissionBySale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetCommissionBySale: %v", err)
	}

	paid, err := s.MarkCommissionPaid(ctx, commission.ID, at)
	if err != nil {
		t.Fatalf("MarkCommissionPaid: %v", err)
	}
	if !paid.Paid || paid.PaidAt == nil {
		t.Fatalf("expected paid commission, got %+v", paid)
	}

	if _, err := s.MarkCommissionPaid(ctx, commission.ID, at); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestAssignCommissionRuleReplacesPrior(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	second, err := s.CreateCommissionRule(ctx, domain.CommissionRule{
		ShopID: "main-shop",
		Kind:   domain.RuleKindFixedAmount,
		Value:  decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("CreateCommissionRule: %v", err)
	}

	if err := s.AssignCommissionRule(ctx, "rep_seed_1", "rule_seed_1"); err != nil {
		t.Fatalf("AssignCommissionRule: %v", err)
	}
	if err := s.AssignCommissionRule(ctx, "rep_seed_1", second.ID); err != nil {
		t.Fatalf("AssignCommissionRule: %v", err)
	}

	active, err := s.GetActiveRuleForSalesman(ctx, "rep_seed_1")
	if err != nil {
		t.Fatalf("GetActiveRuleForSalesman: %v", err)
	}
	if active.ID != second.ID {
		t.Fatalf("expected active rule %s, got %s", second.ID, active.ID)
	}
}

func TestGetActiveRuleForUnassignedSalesman(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetActiveRuleForSalesman(context.Background(), "rep_seed_1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before assignment, got %v", err)
	}
}
