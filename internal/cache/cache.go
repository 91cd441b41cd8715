package cache

import (
	"context"
	"time"

	"github.com/kumarav1nash/vendorpro-engine/internal/domain"
)

// SummaryCache holds computed commission summaries keyed by shop and
// salesman. Entries are invalidated whenever a commission is written or
// paid, so a hit is never more than one ledger write stale.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.CommissionSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.CommissionSummary, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.CommissionSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.CommissionSummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Delete(_ context.Context, _ ...string) error {
	return nil
}
