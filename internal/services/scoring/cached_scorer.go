package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PhiTrade/internal/domain/models"
	domsvc "PhiTrade/internal/domain/service"
	svccache "PhiTrade/internal/service/cache"
)

// CachedActionScorer short-circuits repeat score lookups for the same
// symbol within the TTL. Feature vectors for one symbol change slowly
// relative to tick arrival, so a short TTL trades staleness for load on
// the model service. Cache failures fall through to the delegate.
type CachedActionScorer struct {
	next  domsvc.ActionScorer
	cache svccache.BytesCache
	ttl   time.Duration
}

func NewCachedActionScorer(next domsvc.ActionScorer, cache svccache.BytesCache, ttl time.Duration) *CachedActionScorer {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &CachedActionScorer{next: next, cache: cache, ttl: ttl}
}

func (c *CachedActionScorer) Score(ctx context.Context, symbol string, features map[string]float64) (map[models.Action]float64, error) {
	key := fmt.Sprintf("phitrade:scores:%s", symbol)
	if b, ok, err := c.cache.GetBytes(key); err == nil && ok {
		var scores map[models.Action]float64
		if json.Unmarshal(b, &scores) == nil {
			return scores, nil
		}
	}

	scores, err := c.next.Score(ctx, symbol, features)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(scores); err == nil {
		_ = c.cache.SetBytes(key, b, c.ttl)
	}
	return scores, nil
}

var _ domsvc.ActionScorer = (*CachedActionScorer)(nil)
