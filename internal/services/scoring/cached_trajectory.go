package scoring

import (
	"context"
	"errors"
	"time"

	"PhiTrade/internal/domain/models"
	domsvc "PhiTrade/internal/domain/service"
	pkgcache "PhiTrade/pkg/cache"
)

// CachedTrajectorySource dedupes burst evaluations: repeated calls for a
// symbol within the TTL reuse the last trajectory point instead of
// advancing the optimizer iteration again.
type CachedTrajectorySource struct {
	next  domsvc.TrajectorySource
	cache pkgcache.Service
	ttl   time.Duration
}

func NewCachedTrajectorySource(next domsvc.TrajectorySource, cache pkgcache.Service, ttl time.Duration) *CachedTrajectorySource {
	if ttl <= 0 {
		ttl = time.Second
	}
	return &CachedTrajectorySource{next: next, cache: cache, ttl: ttl}
}

func (s *CachedTrajectorySource) Next(ctx context.Context, symbol string, state models.MarketState) (models.StabilityTrajectoryPoint, error) {
	key := "phitrade:trajectory:" + symbol

	var raw interface{}
	err := s.cache.Get(ctx, key, &raw)
	if err == nil {
		if pt, ok := raw.(models.StabilityTrajectoryPoint); ok {
			return pt, nil
		}
	} else if !errors.Is(err, pkgcache.ErrCacheMiss) {
		// degraded cache must not block detection
		return s.next.Next(ctx, symbol, state)
	}

	pt, err := s.next.Next(ctx, symbol, state)
	if err != nil {
		return models.StabilityTrajectoryPoint{}, err
	}
	_ = s.cache.Set(ctx, key, pt, s.ttl)
	return pt, nil
}

var _ domsvc.TrajectorySource = (*CachedTrajectorySource)(nil)
