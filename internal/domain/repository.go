package domain

import (
	"context"
	"time"
)

// CandidateLookup is the marketplace search capability consumed by the
// curation service. Implementations must return ErrMarketplaceUnavailable
// (possibly wrapped) when the upstream is rate-limited or down, so the
// fallback coordinator can distinguish outage from empty supply.
type CandidateLookup interface {
	SearchCandidates(ctx context.Context, query CandidateQuery) ([]CandidateProduct, error)
}

// ManualOverrideStore provides admin-curated products used for fallback
// substitution when the marketplace is unavailable.
type ManualOverrideStore interface {
	GetManualProducts(ctx context.Context, kitID string) ([]KitProduct, error)
}

// KitRepository persists kits. ReplaceProducts must swap the product list
// and status atomically so readers never see a partially-updated kit.
type KitRepository interface {
	CreateKit(ctx context.Context, kit *Kit) error
	GetKit(ctx context.Context, id string) (*Kit, error)
	GetKitBySlug(ctx context.Context, slug string) (*Kit, error)
	ListKits(ctx context.Context) ([]Kit, error)
	ReplaceProducts(ctx context.Context, kitID string, products []KitProduct, status KitStatus, updatedAt time.Time) error
	SetStatus(ctx context.Context, kitID string, status KitStatus, updatedAt time.Time) error
}

// CacheRepository defines the interface for caching candidate pools
// between curation runs.
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
