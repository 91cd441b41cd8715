package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kumarav1nash/vendorpro-engine/internal/domain"
	"github.com/kumarav1nash/vendorpro-engine/internal/store"
)

func TestSaleLifecycleAgainstPostgres(t *testing.T) {
	databaseURL := os.Getenv("VENDORPRO_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set VENDORPRO_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	shopID := "main-shop"
	productID := fmt.Sprintf("prod-it-%d", stamp)
	salesmanID := fmt.Sprintf("rep-it-%d", stamp)
	ruleID := fmt.Sprintf("rule-it-%d", stamp)

	var saleID, commissionID string
	t.Cleanup(func() {
		if commissionID != "" {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM commissions WHERE id = $1`, commissionID)
		}
		if saleID != "" {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		}
		_, _ = s.db.ExecContext(ctx, `DELETE FROM salesman_rule_assignments WHERE salesman_id = $1`, salesmanID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM commission_rules WHERE id = $1`, ruleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM salesmen WHERE id = $1`, salesmanID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, shop_id, name, base_price, selling_price, stock_quantity, created_at, updated_at)
		VALUES ($1, $2, 'Lifecycle IT Product', 100, 120, 10, now(), now())
	`, productID, shopID); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO salesmen (id, shop_id, name, created_at)
		VALUES ($1, $2, 'Lifecycle IT Rep', now())
	`, salesmanID, shopID); err != nil {
		t.Fatalf("insert salesman: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO commission_rules (id, shop_id, kind, value, active, created_at)
		VALUES ($1, $2, 'percentage_of_sales', 10, true, now())
	`, ruleID, shopID); err != nil {
		t.Fatalf("insert rule: %v", err)
	}
	if err := s.AssignCommissionRule(ctx, salesmanID, ruleID); err != nil {
		t.Fatalf("assign rule: %v", err)
	}

	sale, err := s.CreateSale(ctx, domain.Sale{
		ShopID: shopID,
		Origin: domain.SalesmanSale(salesmanID),
		Items: []domain.SaleItem{
			{ProductID: productID, Quantity: 3, SoldAt: decimal.NewFromInt(120)},
		},
		TotalAmount: decimal.NewFromInt(360),
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	saleID = sale.ID

	var stock int
	if err := s.db.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if stock != 7 {
		t.Fatalf("expected stock 7 after reservation, got %d", stock)
	}

	at := time.Now().UTC()
	approved, err := s.ApproveSale(ctx, sale.ID, &domain.Commission{
		SalesmanID:       salesmanID,
		ShopID:           shopID,
		Amount:           decimal.NewFromInt(36),
		CommissionRuleID: ruleID,
	}, at)
	if err != nil {
		t.Fatalf("approve sale: %v", err)
	}
	if approved.Status != domain.SaleStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}

	commission, err := s.GetCommissionBySale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get commission: %v", err)
	}
	commissionID = commission.ID
	if !commission.Amount.Equal(decimal.NewFromInt(36)) {
		t.Fatalf("expected commission 36, got %s", commission.Amount)
	}

	if _, err := s.ApproveSale(ctx, sale.ID, nil, at); !errors.Is(err, store.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved on second approve, got %v", err)
	}

	if _, err := s.MarkCommissionPaid(ctx, commission.ID, at); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if _, err := s.MarkCommissionPaid(ctx, commission.ID, at); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}
