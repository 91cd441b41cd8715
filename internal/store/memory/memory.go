// Package memory implements the repository on in-process maps. It backs
// dev/demo mode and the service test suite; the postgres store is the
// production path.
package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/kumarav1nash/vendorpro-engine/internal/domain"
	"github.com/kumarav1nash/vendorpro-engine/internal/store"
	"github.com/kumarav1nash/vendorpro-engine/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	products         map[string]domain.Product
	salesmen         map[string]domain.Salesman
	salesByID        map[string]*domain.Sale
	rulesByID        map[string]domain.CommissionRule
	activeRuleByRep  map[string]string
	commissionsByID  map[string]*domain.Commission
	commissionBySale map[string]string
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:         map[string]domain.Product{},
		salesmen:         map[string]domain.Salesman{},
		salesByID:        map[string]*domain.Sale{},
		rulesByID:        map[string]domain.CommissionRule{},
		activeRuleByRep:  map[string]string{},
		commissionsByID:  map[string]*domain.Commission{},
		commissionBySale: map[string]string{},
		usersByUsername:  seedUsers(nil),
	}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials are read from SEED_OWNER_PASSWORD and SEED_SALESMAN_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers(salesmanID *string) map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	salesmanPwd := envOr("SEED_SALESMAN_PASSWORD", "salesman123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_SALESMAN_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD and SEED_SALESMAN_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, domain.RoleOwner},
		{"salesman", salesmanPwd, domain.RoleSalesman},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		account := domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
		if u.role == domain.RoleSalesman && salesmanID != nil {
			account.SalesmanID = *salesmanID
		}
		users[u.username] = account
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	salesmanID := "rep_seed_1"

	s := &Store{
		products:         map[string]domain.Product{},
		salesmen:         map[string]domain.Salesman{},
		salesByID:        map[string]*domain.Sale{},
		rulesByID:        map[string]domain.CommissionRule{},
		activeRuleByRep:  map[string]string{},
		commissionsByID:  map[string]*domain.Commission{},
		commissionBySale: map[string]string{},
		usersByUsername:  seedUsers(&salesmanID),
	}

	products := []domain.Product{
		{ID: "prod_seed_1", Name: "Basmati Rice 5kg", BasePrice: dec("420"), SellingPrice: dec("480"), StockQuantity: 40},
		{ID: "prod_seed_2", Name: "Sunflower Oil 1L", BasePrice: dec("140"), SellingPrice: dec("165"), StockQuantity: 60},
		{ID: "prod_seed_3", Name: "Wheat Flour 10kg", BasePrice: dec("310"), SellingPrice: dec("350"), StockQuantity: 25},
		{ID: "prod_seed_4", Name: "Tea Leaves 500g", BasePrice: dec("180"), SellingPrice: dec("220"), StockQuantity: 30},
		{ID: "prod_seed_5", Name: "Sugar 1kg", BasePrice: dec("42"), SellingPrice: dec("48"), StockQuantity: 80},
	}
	for _, p := range products {
		p.ShopID = "main-shop"
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}

	s.salesmen[salesmanID] = domain.Salesman{
		ID:        salesmanID,
		ShopID:    "main-shop",
		Name:      "Demo Salesman",
		Username:  "salesman",
		CreatedAt: now,
	}

	s.rulesByID["rule_seed_1"] = domain.CommissionRule{
		ID:        "rule_seed_1",
		ShopID:    "main-shop",
		Kind:      domain.RuleKindPercentageOfSales,
		Value:     dec("10"),
		Active:    true,
		CreatedAt: now,
	}

	return s
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) ListProducts(_ context.Context, shopID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if shopID != "" && p.ShopID != shopID {
			continue
		}
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if product.SellingPrice.IsNegative() || product.BasePrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}

	product.ShopID = existing.ShopID
	product.StockQuantity = existing.StockQuantity
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) RestockProduct(_ context.Context, productID string, quantity int) (*domain.Product, error) {
	if quantity < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.StockQuantity += quantity
	product.UpdatedAt = time.Now().UTC()
	s.products[productID] = product
	updated := product
	return &updated, nil
}

func (s *Store) CreateSalesman(_ context.Context, salesman domain.Salesman) (*domain.Salesman, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if salesman.Name == "" || salesman.ShopID == "" {
		return nil, store.ErrInvalidInput
	}
	if salesman.ID == "" {
		salesman.ID = xid.New("rep")
	}
	if salesman.CreatedAt.IsZero() {
		salesman.CreatedAt = time.Now().UTC()
	}
	s.salesmen[salesman.ID] = salesman
	created := salesman
	return &created, nil
}

func (s *Store) GetSalesman(_ context.Context, id string) (*domain.Salesman, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	salesman, ok := s.salesmen[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := salesman
	return &found, nil
}

func (s *Store) ListSalesmen(_ context.Context, shopID string) ([]domain.Salesman, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Salesman, 0, len(s.salesmen))
	for _, sm := range s.salesmen {
		if shopID != "" && sm.ShopID != shopID {
			continue
		}
		result = append(result, sm)
	}
	slices.SortFunc(result, func(a, b domain.Salesman) int {
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	// Validate every line before mutating anything: a shortfall on the
	// last item must leave earlier items' stock untouched.
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		product, exists := s.products[item.ProductID]
		if !exists {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		if product.StockQuantity < item.Quantity {
			return nil, fmt.Errorf("%w: product %s", store.ErrInsufficientStock, product.Name)
		}
	}

	for i, item := range sale.Items {
		product := s.products[item.ProductID]
		product.StockQuantity -= item.Quantity
		product.UpdatedAt = time.Now().UTC()
		s.products[item.ProductID] = product
		sale.Items[i].ProductName = product.Name
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

	stored := cloneSale(&sale)
	s.salesByID[sale.ID] = stored
	return cloneSale(stored), nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if filter.ShopID != "" && sale.ShopID != filter.ShopID {
			continue
		}
		if filter.SalesmanID != "" && sale.Origin.SalesmanID != filter.SalesmanID {
			continue
		}
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		result = append(result, *cloneSale(sale))
	}

	slices.SortFunc(result, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) ApproveSale(_ context.Context, saleID string, commission *domain.Commission, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != domain.SaleStatusPending {
		return nil, store.ErrAlreadyResolved
	}

	sale.Status = domain.SaleStatusApproved
	sale.ResolvedAt = &at

	if commission != nil {
		c := *commission
		if c.ID == "" {
			c.ID = xid.New("comm")
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = at
		}
		c.SaleID = sale.ID
		stored := c
		s.commissionsByID[c.ID] = &stored
		s.commissionBySale[sale.ID] = c.ID
	}

	return cloneSale(sale), nil
}

func (s *Store) RejectSale(_ context.Context, saleID string, reason string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != domain.SaleStatusPending {
		return nil, store.ErrAlreadyResolved
	}

	for _, item := range sale.Items {
		product, exists := s.products[item.ProductID]
		if !exists {
			continue
		}
		product.StockQuantity += item.Quantity
		product.UpdatedAt = at
		s.products[item.ProductID] = product
	}

	sale.Status = domain.SaleStatusRejected
	sale.RejectionReason = reason
	sale.ResolvedAt = &at

	return cloneSale(sale), nil
}

func (s *Store) CreateCommissionRule(_ context.Context, rule domain.CommissionRule) (*domain.CommissionRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	s.rulesByID[rule.ID] = rule
	created := rule
	return &created, nil
}

func (s *Store) GetCommissionRule(_ context.Context, id string) (*domain.CommissionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rulesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := rule
	return &found, nil
}

func (s *Store) ListCommissionRules(_ context.Context, shopID string) ([]domain.CommissionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CommissionRule, 0, len(s.rulesByID))
	for _, rule := range s.rulesByID {
		if shopID != "" && rule.ShopID != shopID {
			continue
		}
		result = append(result, rule)
	}
	slices.SortFunc(result, func(a, b domain.CommissionRule) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) AssignCommissionRule(_ context.Context, salesmanID string, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.salesmen[salesmanID]; !ok {
		return store.ErrNotFound
	}
	rule, ok := s.rulesByID[ruleID]
	if !ok {
		return store.ErrNotFound
	}
	if !rule.Active {
		return store.ErrInvalidCommissionRule
	}

	s.activeRuleByRep[salesmanID] = ruleID
	return nil
}

func (s *Store) GetActiveRuleForSalesman(_ context.Context, salesmanID string) (*domain.CommissionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ruleID, ok := s.activeRuleByRep[salesmanID]
	if !ok {
		return nil, store.ErrNotFound
	}
	rule, ok := s.rulesByID[ruleID]
	if !ok || !rule.Active {
		return nil, store.ErrNotFound
	}
	found := rule
	return &found, nil
}

func (s *Store) ListCommissions(_ context.Context, filter domain.CommissionFilter) ([]domain.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Commission, 0, len(s.commissionsByID))
	for _, c := range s.commissionsByID {
		if filter.ShopID != "" && c.ShopID != filter.ShopID {
			continue
		}
		if filter.SalesmanID != "" && c.SalesmanID != filter.SalesmanID {
			continue
		}
		if filter.UnpaidOnly && c.Paid {
			continue
		}
		result = append(result, *cloneCommission(c))
	}

	slices.SortFunc(result, func(a, b domain.Commission) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) GetCommission(_ context.Context, id string) (*domain.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commissionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneCommission(c), nil
}

func (s *Store) GetCommissionBySale(_ context.Context, saleID string) (*domain.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commissionID, ok := s.commissionBySale[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c, ok := s.commissionsByID[commissionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneCommission(c), nil
}

func (s *Store) MarkCommissionPaid(_ context.Context, commissionID string, at time.Time) (*domain.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commissionsByID[commissionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if c.Paid {
		return nil, store.ErrAlreadyPaid
	}

	c.Paid = true
	c.PaidAt = &at
	return cloneCommission(c), nil
}

func (s *Store) GetShopKPIs(_ context.Context, shopID string, from time.Time, to time.Time, lowStockThreshold int) (domain.ShopKPIs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kpis := domain.ShopKPIs{ShopID: shopID}
	for _, sale := range s.salesByID {
		if shopID != "" && sale.ShopID != shopID {
			continue
		}
		if sale.Status == domain.SaleStatusPending {
			kpis.PendingSales++
		}
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		if sale.Status == domain.SaleStatusApproved {
			kpis.TodaySales++
			kpis.TodayRevenue = kpis.TodayRevenue.Add(sale.TotalAmount)
		}
	}

	for _, p := range s.products {
		if shopID != "" && p.ShopID != shopID {
			continue
		}
		if p.StockQuantity <= lowStockThreshold {
			kpis.LowStockProducts++
		}
	}

	return kpis, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, shopID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if shopID != "" && entry.ShopID != shopID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleSalesman
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := user
	return &found, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(passwordHash) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = passwordHash
	s.usersByUsername[username] = user
	return nil
}

func cloneSale(sale *domain.Sale) *domain.Sale {
	copied := *sale
	copied.Items = make([]domain.SaleItem, len(sale.Items))
	copy(copied.Items, sale.Items)
	if sale.ResolvedAt != nil {
		at := *sale.ResolvedAt
		copied.ResolvedAt = &at
	}
	return &copied
}

func cloneCommission(c *domain.Commission) *domain.Commission {
	copied := *c
	if c.PaidAt != nil {
		at := *c.PaidAt
		copied.PaidAt = &at
	}
	return &copied
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
