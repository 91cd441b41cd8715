package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kumarav1nash/vendorpro-engine/internal/domain"
	"github.com/kumarav1nash/vendorpro-engine/internal/store"
	"github.com/kumarav1nash/vendorpro-engine/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.ShopID == "" {
		return nil, store.ErrInvalidInput
	}
	if product.SellingPrice.IsNegative() || product.BasePrice.IsNegative() || product.StockQuantity < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, shop_id, name, base_price, selling_price, stock_quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
	`, product.ID, product.ShopID, product.Name, product.BasePrice, product.SellingPrice, product.StockQuantity, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, name, base_price, selling_price, stock_quantity, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.ShopID, &p.Name, &p.BasePrice, &p.SellingPrice, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, shopID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, name, base_price, selling_price, stock_quantity, created_at, updated_at
		FROM products
		WHERE shop_id = $1
		ORDER BY name
	`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.BasePrice, &p.SellingPrice, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if product.SellingPrice.IsNegative() || product.BasePrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, base_price = $3, selling_price = $4, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.BasePrice, product.SellingPrice)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, name, base_price, selling_price, stock_quantity, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.BasePrice, &p.SellingPrice, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) RestockProduct(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	if quantity < 1 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProduct(ctx, productID)
}

func (s *Store) CreateSalesman(ctx context.Context, salesman domain.Salesman) (*domain.Salesman, error) {
	if salesman.Name == "" || salesman.ShopID == "" {
		return nil, store.ErrInvalidInput
	}
	if salesman.ID == "" {
		salesman.ID = xid.New("rep")
	}
	if salesman.CreatedAt.IsZero() {
		salesman.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO salesmen (id, shop_id, name, username, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, salesman.ID, salesman.ShopID, salesman.Name, nullIfEmpty(salesman.Username), salesman.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	return &salesman, nil
}

func (s *Store) GetSalesman(ctx context.Context, id string) (*domain.Salesman, error) {
	var sm domain.Salesman
	var username sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, name, username, created_at
		FROM salesmen
		WHERE id = $1
	`, id).Scan(&sm.ID, &sm.ShopID, &sm.Name, &username, &sm.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sm.Username = username.String
	sm.CreatedAt = sm.CreatedAt.UTC()
	return &sm, nil
}

func (s *Store) ListSalesmen(ctx context.Context, shopID string) ([]domain.Salesman, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, name, username, created_at
		FROM salesmen
		WHERE shop_id = $1
		ORDER BY name
	`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	salesmen := make([]domain.Salesman, 0, 16)
	for rows.Next() {
		var sm domain.Salesman
		var username sql.NullString
		if err := rows.Scan(&sm.ID, &sm.ShopID, &sm.Name, &username, &sm.CreatedAt); err != nil {
			return nil, err
		}
		sm.Username = username.String
		salesmen = append(salesmen, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return salesmen, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	ids := uniqueProductIDs(sale.Items)
	if len(ids) == 0 {
		return nil, store.ErrInvalidInput
	}

	productRows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, stock_quantity
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	type productState struct {
		name  string
		stock int
	}
	productMap := make(map[string]productState, len(ids))
	for productRows.Next() {
		var id, name string
		var stock int
		if err := productRows.Scan(&id, &name, &stock); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		productMap[id] = productState{name: name, stock: stock}
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	// All lines are checked before any stock row is decremented so a
	// shortfall anywhere aborts the whole reservation.
	needed := make(map[string]int, len(ids))
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		if _, exists := productMap[item.ProductID]; !exists {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		needed[item.ProductID] += item.Quantity
	}
	for id, qty := range needed {
		product := productMap[id]
		if product.stock < qty {
			return nil, fmt.Errorf("%w: product %s", store.ErrInsufficientStock, product.name)
		}
	}

	for id, qty := range needed {
		_, err = pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1, updated_at = now()
			WHERE id = $2
		`, qty, id)
		if err != nil {
			return nil, err
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusPending
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (
			id, shop_id, origin_kind, salesman_id, status, total_amount,
			rejection_reason, created_at, resolved_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL)
	`, sale.ID, sale.ShopID, sale.Origin.Kind, nullIfEmpty(sale.Origin.SalesmanID),
		sale.Status, sale.TotalAmount, nullIfEmpty(sale.RejectionReason), sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i, item := range sale.Items {
		sale.Items[i].ProductName = productMap[item.ProductID].name
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, product_name, quantity, sold_at)
			VALUES ($1,$2,$3,$4,$5)
		`, sale.ID, item.ProductID, productMap[item.ProductID].name, item.Quantity, item.SoldAt)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, origin_kind, salesman_id, status, total_amount, rejection_reason, created_at, resolved_at
		FROM sales
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}
	items, err := s.loadSaleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, origin_kind, salesman_id, status, total_amount, rejection_reason, created_at, resolved_at
		FROM sales
		WHERE ($1 = '' OR shop_id = $1)
			AND ($2 = '' OR salesman_id = $2)
			AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, filter.ShopID, filter.SalesmanID, filter.Status, limitArg(filter.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		items, err := s.loadSaleItems(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

func (s *Store) ApproveSale(ctx context.Context, saleID string, commission *domain.Commission, at time.Time) (*domain.Sale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var status string
	err = pgTx.QueryRowContext(ctx, `
		SELECT status FROM sales WHERE id = $1 FOR UPDATE
	`, saleID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.SaleStatusPending {
		return nil, store.ErrAlreadyResolved
	}

	res, err := pgTx.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = $4
	`, saleID, domain.SaleStatusApproved, at, domain.SaleStatusPending)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrAlreadyResolved
	}

	if commission != nil {
		c := *commission
		if c.ID == "" {
			c.ID = xid.New("comm")
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = at
		}
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO commissions (id, sale_id, salesman_id, shop_id, amount, commission_rule_id, is_paid, created_at, paid_at)
			VALUES ($1,$2,$3,$4,$5,$6,false,$7,NULL)
		`, c.ID, saleID, c.SalesmanID, c.ShopID, c.Amount, nullIfEmpty(c.CommissionRuleID), c.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrAlreadyResolved
			}
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, saleID)
}

func (s *Store) RejectSale(ctx context.Context, saleID string, reason string, at time.Time) (*domain.Sale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var status string
	err = pgTx.QueryRowContext(ctx, `
		SELECT status FROM sales WHERE id = $1 FOR UPDATE
	`, saleID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.SaleStatusPending {
		return nil, store.ErrAlreadyResolved
	}

	itemRows, err := pgTx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM sale_items
		WHERE sale_id = $1
	`, saleID)
	if err != nil {
		return nil, err
	}
	type line struct {
		productID string
		quantity  int
	}
	items := make([]line, 0, 8)
	for itemRows.Next() {
		var l line
		if err := itemRows.Scan(&l.productID, &l.quantity); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		items = append(items, l)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	res, err := pgTx.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, rejection_reason = $3, resolved_at = $4
		WHERE id = $1 AND status = $5
	`, saleID, domain.SaleStatusRejected, reason, at, domain.SaleStatusPending)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrAlreadyResolved
	}

	for _, item := range items {
		_, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity + $1, updated_at = now()
			WHERE id = $2
		`, item.quantity, item.productID)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, saleID)
}

func (s *Store) CreateCommissionRule(ctx context.Context, rule domain.CommissionRule) (*domain.CommissionRule, error) {
	if rule.ShopID == "" || rule.Kind == "" {
		return nil, store.ErrInvalidInput
	}
	if rule.ID == "" {
		rule.ID = xid.New("rule")
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	rule.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commission_rules (id, shop_id, kind, value, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, rule.ID, rule.ShopID, rule.Kind, rule.Value, rule.Active, rule.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *Store) GetCommissionRule(ctx context.Context, id string) (*domain.CommissionRule, error) {
	var rule domain.CommissionRule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, kind, value, active, created_at
		FROM commission_rules
		WHERE id = $1
	`, id).Scan(&rule.ID, &rule.ShopID, &rule.Kind, &rule.Value, &rule.Active, &rule.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	return &rule, nil
}

func (s *Store) ListCommissionRules(ctx context.Context, shopID string) ([]domain.CommissionRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, kind, value, active, created_at
		FROM commission_rules
		WHERE shop_id = $1
		ORDER BY created_at DESC, id
	`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.CommissionRule, 0, 16)
	for rows.Next() {
		var rule domain.CommissionRule
		if err := rows.Scan(&rule.ID, &rule.ShopID, &rule.Kind, &rule.Value, &rule.Active, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *Store) AssignCommissionRule(ctx context.Context, salesmanID string, ruleID string) error {
	rule, err := s.GetCommissionRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if !rule.Active {
		return store.ErrInvalidCommissionRule
	}
	if _, err := s.GetSalesman(ctx, salesmanID); err != nil {
		return err
	}

	// One active assignment per salesman; reassigning replaces the
	// previous rule in place.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO salesman_rule_assignments (salesman_id, rule_id, assigned_at)
		VALUES ($1,$2,now())
		ON CONFLICT (salesman_id)
		DO UPDATE SET rule_id = EXCLUDED.rule_id, assigned_at = now()
	`, salesmanID, ruleID)
	return err
}

func (s *Store) GetActiveRuleForSalesman(ctx context.Context, salesmanID string) (*domain.CommissionRule, error) {
	var rule domain.CommissionRule
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.shop_id, r.kind, r.value, r.active, r.created_at
		FROM salesman_rule_assignments a
		JOIN commission_rules r ON r.id = a.rule_id
		WHERE a.salesman_id = $1 AND r.active = true
	`, salesmanID).Scan(&rule.ID, &rule.ShopID, &rule.Kind, &rule.Value, &rule.Active, &rule.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	return &rule, nil
}

func (s *Store) ListCommissions(ctx context.Context, filter domain.CommissionFilter) ([]domain.Commission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, salesman_id, shop_id, amount, commission_rule_id, is_paid, created_at, paid_at
		FROM commissions
		WHERE ($1 = '' OR shop_id = $1)
			AND ($2 = '' OR salesman_id = $2)
			AND ($3 = false OR is_paid = false)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, filter.ShopID, filter.SalesmanID, filter.UnpaidOnly, limitArg(filter.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	commissions := make([]domain.Commission, 0, 64)
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		commissions = append(commissions, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return commissions, nil
}

func (s *Store) GetCommission(ctx context.Context, id string) (*domain.Commission, error) {
	return scanCommission(s.db.QueryRowContext(ctx, `
		SELECT id, sale_id, salesman_id, shop_id, amount, commission_rule_id, is_paid, created_at, paid_at
		FROM commissions
		WHERE id = $1
	`, id))
}

func (s *Store) GetCommissionBySale(ctx context.Context, saleID string) (*domain.Commission, error) {
	return scanCommission(s.db.QueryRowContext(ctx, `
		SELECT id, sale_id, salesman_id, shop_id, amount, commission_rule_id, is_paid, created_at, paid_at
		FROM commissions
		WHERE sale_id = $1
	`, saleID))
}

func (s *Store) MarkCommissionPaid(ctx context.Context, commissionID string, at time.Time) (*domain.Commission, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE commissions
		SET is_paid = true, paid_at = $2
		WHERE id = $1 AND is_paid = false
	`, commissionID, at)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		existing, lookupErr := s.GetCommission(ctx, commissionID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing.Paid {
			return nil, store.ErrAlreadyPaid
		}
		return nil, store.ErrNotFound
	}
	return s.GetCommission(ctx, commissionID)
}

func (s *Store) GetShopKPIs(ctx context.Context, shopID string, from time.Time, to time.Time, lowStockThreshold int) (domain.ShopKPIs, error) {
	kpis := domain.ShopKPIs{ShopID: shopID}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount) FILTER (WHERE status = 'approved' AND created_at >= $2 AND created_at < $3), 0),
			COUNT(*) FILTER (WHERE status = 'approved' AND created_at >= $2 AND created_at < $3),
			COUNT(*) FILTER (WHERE status = 'pending')
		FROM sales
		WHERE shop_id = $1
	`, shopID, from, to).Scan(&kpis.TodayRevenue, &kpis.TodaySales, &kpis.PendingSales)
	if err != nil {
		return domain.ShopKPIs{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM products
		WHERE shop_id = $1 AND stock_quantity <= $2
	`, shopID, lowStockThreshold).Scan(&kpis.LowStockProducts)
	if err != nil {
		return domain.ShopKPIs{}, err
	}

	return kpis, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, shop_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.ShopID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, shopID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE shop_id = $1
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, shopID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ShopID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleSalesman
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, salesman_id, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,true,$5,now())
	`, user.Username, user.Password, user.Role, nullIfEmpty(user.SalesmanID), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	var salesmanID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, salesman_id, active, created_at
		FROM app_users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&user.Username, &user.Password, &user.Role, &salesmanID, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.SalesmanID = salesmanID.String
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, passwordHash string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(passwordHash) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, passwordHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var sale domain.Sale
	var salesmanID, rejectionReason sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&sale.ID, &sale.ShopID, &sale.Origin.Kind, &salesmanID, &sale.Status,
		&sale.TotalAmount, &rejectionReason, &sale.CreatedAt, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.Origin.SalesmanID = salesmanID.String
	sale.RejectionReason = rejectionReason.String
	sale.CreatedAt = sale.CreatedAt.UTC()
	if resolvedAt.Valid {
		at := resolvedAt.Time.UTC()
		sale.ResolvedAt = &at
	}
	return &sale, nil
}

func scanCommission(row rowScanner) (*domain.Commission, error) {
	var c domain.Commission
	var ruleID sql.NullString
	var paidAt sql.NullTime
	err := row.Scan(&c.ID, &c.SaleID, &c.SalesmanID, &c.ShopID, &c.Amount, &ruleID, &c.Paid, &c.CreatedAt, &paidAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CommissionRuleID = ruleID.String
	c.CreatedAt = c.CreatedAt.UTC()
	if paidAt.Valid {
		at := paidAt.Time.UTC()
		c.PaidAt = &at
	}
	return &c, nil
}

func (s *Store) loadSaleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, quantity, sold_at
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY product_id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.SoldAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func uniqueProductIDs(items []domain.SaleItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// limitArg maps a non-positive limit to LIMIT NULL (no cap).
func limitArg(limit int) any {
	if limit < 1 {
		return nil
	}
	return limit
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
