package store

import (
	"context"
	"errors"
	"time"

	"github.com/kumarav1nash/vendorpro-engine/internal/domain"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidInput          = errors.New("invalid input")
	ErrAlreadyResolved       = errors.New("sale already resolved")
	ErrAlreadyPaid           = errors.New("commission already paid")
	ErrInvalidCommissionRule = errors.New("invalid commission rule")
)

type Repository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, shopID string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	RestockProduct(ctx context.Context, productID string, quantity int) (*domain.Product, error)

	CreateSalesman(ctx context.Context, salesman domain.Salesman) (*domain.Salesman, error)
	GetSalesman(ctx context.Context, id string) (*domain.Salesman, error)
	ListSalesmen(ctx context.Context, shopID string) ([]domain.Salesman, error)

	// CreateSale reserves stock for every item and persists the sale as
	// pending in a single atomic step. A shortfall on any item leaves
	// stock untouched and returns ErrInsufficientStock wrapped with the
	// offending product id.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
	// ApproveSale transitions pending->approved and, when commission is
	// non-nil, inserts the commission row in the same transaction. A
	// non-pending sale returns ErrAlreadyResolved.
	ApproveSale(ctx context.Context, saleID string, commission *domain.Commission, at time.Time) (*domain.Sale, error)
	// RejectSale transitions pending->rejected and restores every item's
	// stock in the same transaction.
	RejectSale(ctx context.Context, saleID string, reason string, at time.Time) (*domain.Sale, error)

	CreateCommissionRule(ctx context.Context, rule domain.CommissionRule) (*domain.CommissionRule, error)
	GetCommissionRule(ctx context.Context, id string) (*domain.CommissionRule, error)
	ListCommissionRules(ctx context.Context, shopID string) ([]domain.CommissionRule, error)
	// AssignCommissionRule replaces any prior active assignment for the
	// salesman; at most one active assignment exists per salesman.
	AssignCommissionRule(ctx context.Context, salesmanID string, ruleID string) error
	GetActiveRuleForSalesman(ctx context.Context, salesmanID string) (*domain.CommissionRule, error)

	ListCommissions(ctx context.Context, filter domain.CommissionFilter) ([]domain.Commission, error)
	GetCommission(ctx context.Context, id string) (*domain.Commission, error)
	GetCommissionBySale(ctx context.Context, saleID string) (*domain.Commission, error)
	// MarkCommissionPaid flips is_paid exactly once; a second call
	// returns ErrAlreadyPaid with the record otherwise unchanged.
	MarkCommissionPaid(ctx context.Context, commissionID string, at time.Time) (*domain.Commission, error)

	GetShopKPIs(ctx context.Context, shopID string, from time.Time, to time.Time, lowStockThreshold int) (domain.ShopKPIs, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, shopID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, passwordHash string) error
}
