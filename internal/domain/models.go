package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	ShopID        string          `json:"shop_id"`
	Name          string          `json:"name"`
	BasePrice     decimal.Decimal `json:"base_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ProductCreateRequest struct {
	ShopID       string          `json:"shop_id"`
	Name         string          `json:"name"`
	BasePrice    decimal.Decimal `json:"base_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	InitialStock int             `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Name         *string          `json:"name,omitempty"`
	BasePrice    *decimal.Decimal `json:"base_price,omitempty"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type Salesman struct {
	ID        string    `json:"id"`
	ShopID    string    `json:"shop_id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type SalesmanCreateRequest struct {
	ShopID   string `json:"shop_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SaleOrigin records who made a sale. Owner-direct sales never earn
// commission; salesman sales are commissioned against the salesman's
// active rule at approval time.
type SaleOrigin struct {
	Kind       string `json:"kind"`
	SalesmanID string `json:"salesman_id,omitempty"`
}

const (
	OriginOwnerDirect = "owner_direct"
	OriginSalesman    = "salesman"
)

func OwnerDirect() SaleOrigin {
	return SaleOrigin{Kind: OriginOwnerDirect}
}

func SalesmanSale(salesmanID string) SaleOrigin {
	return SaleOrigin{Kind: OriginSalesman, SalesmanID: salesmanID}
}

func (o SaleOrigin) IsSalesman() bool {
	return o.Kind == OriginSalesman && o.SalesmanID != ""
}

type SaleItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	SoldAt      decimal.Decimal `json:"sold_at"`
}

type Sale struct {
	ID              string          `json:"id"`
	ShopID          string          `json:"shop_id"`
	Origin          SaleOrigin      `json:"origin"`
	Items           []SaleItem      `json:"items"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
}

type SaleItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	SoldAt    decimal.Decimal `json:"sold_at"`
}

type SaleCreateRequest struct {
	ShopID     string            `json:"shop_id"`
	SalesmanID string            `json:"salesman_id,omitempty"`
	Items      []SaleItemRequest `json:"items"`
}

type SaleRejectRequest struct {
	Reason string `json:"reason"`
}

type SaleFilter struct {
	ShopID     string
	SalesmanID string
	Status     string
	Limit      int
}

type SaleResponse struct {
	Sale Sale `json:"sale"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type CommissionRule struct {
	ID        string          `json:"id"`
	ShopID    string          `json:"shop_id"`
	Kind      string          `json:"kind"`
	Value     decimal.Decimal `json:"value"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	RuleKindPercentageOfSales      = "percentage_of_sales"
	RuleKindFixedAmount            = "fixed_amount"
	RuleKindPercentageOnDifference = "percentage_on_difference"
)

type CommissionRuleCreateRequest struct {
	ShopID string          `json:"shop_id"`
	Kind   string          `json:"kind"`
	Value  decimal.Decimal `json:"value"`
}

type CommissionRuleAssignRequest struct {
	SalesmanID string `json:"salesman_id"`
}

type Commission struct {
	ID               string          `json:"id"`
	SaleID           string          `json:"sale_id"`
	SalesmanID       string          `json:"salesman_id"`
	ShopID           string          `json:"shop_id"`
	Amount           decimal.Decimal `json:"amount"`
	CommissionRuleID string          `json:"commission_rule_id,omitempty"`
	Paid             bool            `json:"paid"`
	CreatedAt        time.Time       `json:"created_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
}

type CommissionFilter struct {
	ShopID     string
	SalesmanID string
	UnpaidOnly bool
	Limit      int
}

type CommissionResponse struct {
	Commission Commission `json:"commission"`
}

type CommissionListResponse struct {
	Commissions []Commission `json:"commissions"`
}

// CommissionSummary reports ledger totals plus a recomputed projection for
// sales still pending. PendingEstimate is derived from the currently active
// rule on every call and is never persisted; the rule applied at approval
// time may differ.
type CommissionSummary struct {
	ShopID          string          `json:"shop_id,omitempty"`
	SalesmanID      string          `json:"salesman_id,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Paid            decimal.Decimal `json:"paid"`
	Unpaid          decimal.Decimal `json:"unpaid"`
	PendingEstimate decimal.Decimal `json:"pending_estimate"`
}

type ShopKPIs struct {
	ShopID           string          `json:"shop_id"`
	Date             string          `json:"date"`
	TodayRevenue     decimal.Decimal `json:"today_revenue"`
	TodaySales       int64           `json:"today_sales"`
	PendingSales     int64           `json:"pending_sales"`
	LowStockProducts int64           `json:"low_stock_products"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	SalesmanID  string `json:"salesman_id,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username   string
	Role       string
	SalesmanID string
}

type AuditLog struct {
	ID            string    `json:"id"`
	ShopID        string    `json:"shop_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username   string
	Password   string
	Role       string
	SalesmanID string
	Active     bool
	CreatedAt  time.Time
}

const (
	SaleStatusPending  = "pending"
	SaleStatusApproved = "approved"
	SaleStatusRejected = "rejected"
)

const (
	RoleOwner    = "owner"
	RoleSalesman = "salesman"
)

// DefaultRejectionReason is stored when a sale is rejected without an
// explicit reason, so downstream display never sees an empty value.
const DefaultRejectionReason = "rejected without reason"
