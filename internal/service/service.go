package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/kumarav1nash/vendorpro-engine/internal/cache"
	"github.com/kumarav1nash/vendorpro-engine/internal/commission"
	"github.com/kumarav1nash/vendorpro-engine/internal/domain"
	"github.com/kumarav1nash/vendorpro-engine/internal/store"
	"github.com/kumarav1nash/vendorpro-engine/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ErrOwnerRequired is returned when a mutation is attempted by anyone
// other than the shop owner.
var ErrOwnerRequired = errors.New("owner role required")

type Service struct {
	repo              store.Repository
	summaries         cache.SummaryCache
	defaultShopID     string
	lowStockThreshold int
	summaryTTL        time.Duration
}

func New(repo store.Repository, summaries cache.SummaryCache, defaultShopID string, lowStockThreshold int, summaryTTL time.Duration) *Service {
	if defaultShopID == "" {
		defaultShopID = "main-shop"
	}
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if lowStockThreshold < 0 {
		lowStockThreshold = 0
	}

	return &Service{
		repo:              repo,
		summaries:         summaries,
		defaultShopID:     defaultShopID,
		lowStockThreshold: lowStockThreshold,
		summaryTTL:        summaryTTL,
	}
}

func (s *Service) requireOwner(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleOwner {
		return ErrOwnerRequired
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context, shopID string) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, defaultString(shopID, s.defaultShopID))
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.ShopID == "" {
		req.ShopID = s.defaultShopID
	}
	if req.Name == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.SellingPrice.IsNegative() || req.BasePrice.IsNegative() || req.InitialStock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ShopID:        req.ShopID,
		Name:          req.Name,
		BasePrice:     req.BasePrice,
		SellingPrice:  req.SellingPrice,
		StockQuantity: req.InitialStock,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, req.ShopID, "product_create", "product", created.ID,
		fmt.Sprintf("name=%s,selling_price=%s,stock=%d", created.Name, created.SellingPrice, created.StockQuantity))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Product{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.BasePrice != nil {
		if req.BasePrice.IsNegative() {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.BasePrice = *req.BasePrice
	}
	if req.SellingPrice != nil {
		if req.SellingPrice.IsNegative() {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.SellingPrice = *req.SellingPrice
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, saved.ShopID, "product_update", "product", saved.ID,
		fmt.Sprintf("name=%s,base_price=%s,selling_price=%s", saved.Name, saved.BasePrice, saved.SellingPrice))
	return *saved, nil
}

func (s *Service) RestockProduct(ctx context.Context, id string, req domain.RestockRequest) (domain.Product, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Product{}, err
	}
	if req.Quantity < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}

	updated, err := s.repo.RestockProduct(ctx, strings.TrimSpace(id), req.Quantity)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, updated.ShopID, "product_restock", "product", updated.ID,
		fmt.Sprintf("quantity=%d,stock=%d", req.Quantity, updated.StockQuantity))
	return *updated, nil
}

func (s *Service) CreateSalesman(ctx context.Context, req domain.SalesmanCreateRequest) (domain.Salesman, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Salesman{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.ShopID == "" {
		req.ShopID = s.defaultShopID
	}
	if req.Name == "" {
		return domain.Salesman{}, store.ErrInvalidInput
	}
	if req.Username != "" && len(req.Password) < 8 {
		return domain.Salesman{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateSalesman(ctx, domain.Salesman{
		ShopID:   req.ShopID,
		Name:     req.Name,
		Username: req.Username,
	})
	if err != nil {
		return domain.Salesman{}, err
	}

	// A username makes the salesman a login principal for their own
	// sales and commissions.
	if req.Username != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.Salesman{}, err
		}
		if err := s.repo.CreateUser(ctx, domain.UserAccount{
			Username:   req.Username,
			Password:   string(hash),
			Role:       domain.RoleSalesman,
			SalesmanID: created.ID,
		}); err != nil {
			return domain.Salesman{}, err
		}
	}

	s.logAudit(ctx, req.ShopID, "salesman_create", "salesman", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) ListSalesmen(ctx context.Context, shopID string) ([]domain.Salesman, error) {
	return s.repo.ListSalesmen(ctx, defaultString(shopID, s.defaultShopID))
}

func (s *Service) GetSalesman(ctx context.Context, id string) (domain.Salesman, error) {
	salesman, err := s.repo.GetSalesman(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Salesman{}, err
	}
	return *salesman, nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, ErrOwnerRequired
	}

	if req.ShopID == "" {
		req.ShopID = s.defaultShopID
	}
	if len(req.Items) == 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	var origin domain.SaleOrigin
	switch actor.Role {
	case domain.RoleSalesman:
		// Salesmen only record sales under their own identity.
		if actor.SalesmanID == "" {
			return domain.Sale{}, store.ErrInvalidInput
		}
		salesman, err := s.repo.GetSalesman(ctx, actor.SalesmanID)
		if err != nil {
			return domain.Sale{}, err
		}
		if salesman.ShopID != req.ShopID {
			return domain.Sale{}, fmt.Errorf("%w: salesman %s not in shop %s", store.ErrInvalidInput, actor.SalesmanID, req.ShopID)
		}
		origin = domain.SalesmanSale(actor.SalesmanID)
	case domain.RoleOwner:
		if req.SalesmanID != "" {
			salesman, err := s.repo.GetSalesman(ctx, req.SalesmanID)
			if err != nil {
				return domain.Sale{}, err
			}
			if salesman.ShopID != req.ShopID {
				return domain.Sale{}, fmt.Errorf("%w: salesman %s not in shop %s", store.ErrInvalidInput, req.SalesmanID, req.ShopID)
			}
			origin = domain.SalesmanSale(req.SalesmanID)
		} else {
			origin = domain.OwnerDirect()
		}
	default:
		return domain.Sale{}, ErrOwnerRequired
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity < 1 || !item.SoldAt.IsPositive() {
			return domain.Sale{}, store.ErrInvalidInput
		}
		ids = append(ids, item.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.Sale{}, err
	}

	total := decimal.Zero
	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		product, exists := products[item.ProductID]
		if !exists {
			return domain.Sale{}, store.ErrNotFound
		}
		// Products from other shops are invisible here even when the
		// store can resolve the id.
		if product.ShopID != req.ShopID {
			return domain.Sale{}, fmt.Errorf("%w: product %s not in shop %s", store.ErrInvalidInput, item.ProductID, req.ShopID)
		}
		items = append(items, domain.SaleItem{
			ProductID:   item.ProductID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			SoldAt:      item.SoldAt,
		})
		total = total.Add(item.SoldAt.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	created, err := s.repo.CreateSale(ctx, domain.Sale{
		ID:          xid.New("sale"),
		ShopID:      req.ShopID,
		Origin:      origin,
		Items:       items,
		Status:      domain.SaleStatusPending,
		TotalAmount: total.Round(2),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, created.ShopID, "sale_create", "sale", created.ID,
		fmt.Sprintf("origin=%s,total=%s,items=%d", created.Origin.Kind, created.TotalAmount, len(created.Items)))
	return *created, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleSalesman && sale.Origin.SalesmanID != actor.SalesmanID {
		return domain.Sale{}, store.ErrNotFound
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	if filter.ShopID == "" {
		filter.ShopID = s.defaultShopID
	}
	// Salesmen see their own sales only.
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleSalesman {
		filter.SalesmanID = actor.SalesmanID
	}
	return s.repo.ListSales(ctx, filter)
}

// ApproveSale settles a pending sale. The commission amount is computed
// here from the salesman's active rule and current catalog prices, then
// written in the same store transaction that flips the sale status, so
// concurrent approve/reject calls can never double-write the ledger.
func (s *Service) ApproveSale(ctx context.Context, saleID string) (domain.Sale, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Sale{}, err
	}

	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(saleID))
	if err != nil {
		return domain.Sale{}, err
	}
	if sale.Status != domain.SaleStatusPending {
		return domain.Sale{}, store.ErrAlreadyResolved
	}

	var entry *domain.Commission
	if sale.Origin.IsSalesman() {
		amount := decimal.Zero
		ruleID := ""
		rule, err := s.repo.GetActiveRuleForSalesman(ctx, sale.Origin.SalesmanID)
		switch {
		case err == nil:
			lines, err := s.commissionLines(ctx, sale.Items)
			if err != nil {
				return domain.Sale{}, err
			}
			amount, err = commission.Calculate(lines, *rule)
			if err != nil {
				return domain.Sale{}, err
			}
			ruleID = rule.ID
		case errors.Is(err, store.ErrNotFound):
			// No active rule: the sale still settles, with a zero-amount
			// ledger entry so payout history stays complete.
		default:
			return domain.Sale{}, err
		}

		entry = &domain.Commission{
			ID:               xid.New("comm"),
			SaleID:           sale.ID,
			SalesmanID:       sale.Origin.SalesmanID,
			ShopID:           sale.ShopID,
			Amount:           amount,
			CommissionRuleID: ruleID,
		}
	}

	at := time.Now().UTC()
	approved, err := s.repo.ApproveSale(ctx, sale.ID, entry, at)
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateSummaries(ctx, approved.ShopID, approved.Origin.SalesmanID)
	detail := "origin=" + approved.Origin.Kind
	if entry != nil {
		detail += ",commission=" + entry.Amount.String()
	}
	s.logAudit(ctx, approved.ShopID, "sale_approve", "sale", approved.ID, detail)
	return *approved, nil
}

func (s *Service) RejectSale(ctx context.Context, saleID string, req domain.SaleRejectRequest) (domain.Sale, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Sale{}, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = domain.DefaultRejectionReason
	}

	at := time.Now().UTC()
	rejected, err := s.repo.RejectSale(ctx, strings.TrimSpace(saleID), reason, at)
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateSummaries(ctx, rejected.ShopID, rejected.Origin.SalesmanID)
	s.logAudit(ctx, rejected.ShopID, "sale_reject", "sale", rejected.ID, "reason="+reason)
	return *rejected, nil
}

func (s *Service) CreateCommissionRule(ctx context.Context, req domain.CommissionRuleCreateRequest) (domain.CommissionRule, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.CommissionRule{}, err
	}
	if req.ShopID == "" {
		req.ShopID = s.defaultShopID
	}
	if err := validateRule(req.Kind, req.Value); err != nil {
		return domain.CommissionRule{}, err
	}

	created, err := s.repo.CreateCommissionRule(ctx, domain.CommissionRule{
		ShopID: req.ShopID,
		Kind:   req.Kind,
		Value:  req.Value,
	})
	if err != nil {
		return domain.CommissionRule{}, err
	}

	s.logAudit(ctx, req.ShopID, "rule_create", "commission_rule", created.ID,
		fmt.Sprintf("kind=%s,value=%s", created.Kind, created.Value))
	return *created, nil
}

func (s *Service) ListCommissionRules(ctx context.Context, shopID string) ([]domain.CommissionRule, error) {
	return s.repo.ListCommissionRules(ctx, defaultString(shopID, s.defaultShopID))
}

func (s *Service) AssignCommissionRule(ctx context.Context, ruleID string, req domain.CommissionRuleAssignRequest) error {
	if err := s.requireOwner(ctx); err != nil {
		return err
	}
	ruleID = strings.TrimSpace(ruleID)
	salesmanID := strings.TrimSpace(req.SalesmanID)
	if ruleID == "" || salesmanID == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.AssignCommissionRule(ctx, salesmanID, ruleID); err != nil {
		return err
	}

	s.invalidateSummaries(ctx, s.defaultShopID, salesmanID)
	s.logAudit(ctx, s.defaultShopID, "rule_assign", "commission_rule", ruleID, "salesman="+salesmanID)
	return nil
}

func (s *Service) ListCommissions(ctx context.Context, filter domain.CommissionFilter) ([]domain.Commission, error) {
	if filter.ShopID == "" {
		filter.ShopID = s.defaultShopID
	}
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleSalesman {
		filter.SalesmanID = actor.SalesmanID
	}
	return s.repo.ListCommissions(ctx, filter)
}

func (s *Service) MarkCommissionPaid(ctx context.Context, commissionID string) (domain.Commission, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Commission{}, err
	}

	at := time.Now().UTC()
	paid, err := s.repo.MarkCommissionPaid(ctx, strings.TrimSpace(commissionID), at)
	if err != nil {
		return domain.Commission{}, err
	}

	s.invalidateSummaries(ctx, paid.ShopID, paid.SalesmanID)
	s.logAudit(ctx, paid.ShopID, "commission_pay", "commission", paid.ID, "amount="+paid.Amount.String())
	return *paid, nil
}

// SummarizeCommissions totals the ledger for a salesman (or a whole
// shop) and projects what their pending sales would earn under the rule
// active right now. The projection is advisory: the binding amount is
// whatever gets written when each sale is actually approved.
func (s *Service) SummarizeCommissions(ctx context.Context, shopID string, salesmanID string) (domain.CommissionSummary, error) {
	shopID = defaultString(shopID, s.defaultShopID)
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleSalesman {
		salesmanID = actor.SalesmanID
	}

	key := summaryKey(shopID, salesmanID)
	if cached, hit, err := s.summaries.Get(ctx, key); err == nil && hit {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: summary cache read failed key=%s: %v", key, err)
	}

	commissions, err := s.repo.ListCommissions(ctx, domain.CommissionFilter{ShopID: shopID, SalesmanID: salesmanID, Limit: -1})
	if err != nil {
		return domain.CommissionSummary{}, err
	}

	summary := domain.CommissionSummary{
		ShopID:     shopID,
		SalesmanID: salesmanID,
		Total:      decimal.Zero,
		Paid:       decimal.Zero,
		Unpaid:     decimal.Zero,
	}
	for _, c := range commissions {
		summary.Total = summary.Total.Add(c.Amount)
		if c.Paid {
			summary.Paid = summary.Paid.Add(c.Amount)
		} else {
			summary.Unpaid = summary.Unpaid.Add(c.Amount)
		}
	}

	estimate, err := s.estimatePending(ctx, shopID, salesmanID)
	if err != nil {
		return domain.CommissionSummary{}, err
	}
	summary.PendingEstimate = estimate

	if err := s.summaries.Set(ctx, key, &summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed key=%s: %v", key, err)
	}
	return summary, nil
}

func (s *Service) estimatePending(ctx context.Context, shopID string, salesmanID string) (decimal.Decimal, error) {
	pending, err := s.repo.ListSales(ctx, domain.SaleFilter{
		ShopID:     shopID,
		SalesmanID: salesmanID,
		Status:     domain.SaleStatusPending,
		Limit:      -1,
	})
	if err != nil {
		return decimal.Zero, err
	}

	estimate := decimal.Zero
	rulesByRep := map[string]*domain.CommissionRule{}
	for _, sale := range pending {
		if !sale.Origin.IsSalesman() {
			continue
		}
		rule, cached := rulesByRep[sale.Origin.SalesmanID]
		if !cached {
			r, err := s.repo.GetActiveRuleForSalesman(ctx, sale.Origin.SalesmanID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return decimal.Zero, err
			}
			rule = r
			rulesByRep[sale.Origin.SalesmanID] = rule
		}
		if rule == nil {
			continue
		}

		lines, err := s.commissionLines(ctx, sale.Items)
		if err != nil {
			return decimal.Zero, err
		}
		amount, err := commission.Calculate(lines, *rule)
		if err != nil {
			return decimal.Zero, err
		}
		estimate = estimate.Add(amount)
	}
	return estimate, nil
}

func (s *Service) DashboardKPIs(ctx context.Context, shopID string, date string) (domain.ShopKPIs, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.ShopKPIs{}, err
	}
	shopID = defaultString(shopID, s.defaultShopID)

	day := time.Now().UTC()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.ShopKPIs{}, store.ErrInvalidInput
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	kpis, err := s.repo.GetShopKPIs(ctx, shopID, from, to, s.lowStockThreshold)
	if err != nil {
		return domain.ShopKPIs{}, err
	}
	kpis.Date = from.Format("2006-01-02")
	return kpis, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, shopID string, date string, limit int) ([]domain.AuditLog, error) {
	if err := s.requireOwner(ctx); err != nil {
		return nil, err
	}
	shopID = defaultString(shopID, s.defaultShopID)

	day := time.Now().UTC()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrInvalidInput
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, shopID, from, to, limit)
}

func (s *Service) commissionLines(ctx context.Context, items []domain.SaleItem) ([]commission.Line, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]commission.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, commission.Line{
			Quantity:     item.Quantity,
			SoldAt:       item.SoldAt,
			CatalogPrice: products[item.ProductID].SellingPrice,
		})
	}
	return lines, nil
}

func (s *Service) invalidateSummaries(ctx context.Context, shopID string, salesmanID string) {
	keys := []string{summaryKey(shopID, "")}
	if salesmanID != "" {
		keys = append(keys, summaryKey(shopID, salesmanID))
	}
	if err := s.summaries.Delete(ctx, keys...); err != nil {
		log.Printf("[service] WARN: summary cache invalidation failed shop=%s: %v", shopID, err)
	}
}

func (s *Service) logAudit(ctx context.Context, shopID string, action string, entityType string, entityID string, detail string) {
	if shopID == "" {
		shopID = s.defaultShopID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ShopID:        shopID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func validateRule(kind string, value decimal.Decimal) error {
	switch kind {
	case domain.RuleKindPercentageOfSales, domain.RuleKindPercentageOnDifference:
		if !value.IsPositive() || value.GreaterThan(decimal.NewFromInt(100)) {
			return store.ErrInvalidCommissionRule
		}
	case domain.RuleKindFixedAmount:
		if !value.IsPositive() {
			return store.ErrInvalidCommissionRule
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", store.ErrInvalidCommissionRule, kind)
	}
	return nil
}

func summaryKey(shopID string, salesmanID string) string {
	if salesmanID == "" {
		return "summary:" + shopID
	}
	return "summary:" + shopID + ":" + salesmanID
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
