package subscription

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/pkg/cache"
	"github.com/gapilongo/OPiN/storage"
	"github.com/gapilongo/OPiN/types"
)

// DefaultCacheTTL is how long the active subscription list is served from
// cache before the store is consulted again. Matching tolerates slightly
// stale subscription state.
const DefaultCacheTTL = 30 * time.Second

const activeListKey = "active"

// Provider serves the active subscription list with a short TTL cache in
// front of the store, deduplicating concurrent refreshes.
type Provider struct {
	store  storage.Store
	cache  cache.Cache[[]*types.Subscription]
	group  singleflight.Group
	logger *slog.Logger
}

// NewProvider creates a provider. The cache lives until ctx is cancelled.
func NewProvider(ctx context.Context, store storage.Store, ttl time.Duration, logger *slog.Logger) *Provider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		store:  store,
		cache:  cache.NewTTL[[]*types.Subscription](ctx, ttl, ttl, nil),
		logger: logger.With("component", "subscription-provider"),
	}
}

// Active returns the active subscriptions, from cache when fresh.
func (p *Provider) Active(ctx context.Context) ([]*types.Subscription, error) {
	if subs, ok := p.cache.Get(activeListKey); ok {
		return subs, nil
	}

	v, err, _ := p.group.Do(activeListKey, func() (any, error) {
		subs, err := p.store.GetActiveSubscriptions(ctx)
		if err != nil {
			return nil, errors.WrapTransient(err, "subscription_provider", "Active", "loading subscriptions")
		}
		if _, err := p.cache.Set(activeListKey, subs); err != nil {
			p.logger.Warn("failed to cache subscription list", "error", err)
		}
		return subs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*types.Subscription), nil
}

// MatchPoint returns the active subscriptions matching the point, in stable
// provider order.
func (p *Provider) MatchPoint(ctx context.Context, point *types.DataPoint) ([]*types.Subscription, error) {
	subs, err := p.Active(ctx)
	if err != nil {
		return nil, err
	}
	return Match(point, subs), nil
}

// Invalidate drops the cached list, forcing the next Active call to hit the
// store. Call after subscription writes.
func (p *Provider) Invalidate() {
	if _, err := p.cache.Delete(activeListKey); err != nil {
		p.logger.Warn("failed to invalidate subscription cache", "error", err)
	}
}
