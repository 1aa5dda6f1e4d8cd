package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/releasegate/riskadvisor/internal/cache"
	"github.com/releasegate/riskadvisor/internal/models"
)

// CachedBackend wraps a Backend with short-lived caching of baseline and
// health lookups, the two calls that dominate assessment latency. Revert
// event fetches pass through: the corpus query shape varies per request
// and the backend already serves it cheaply.
type CachedBackend struct {
	next        Backend
	cache       cache.Provider
	baselineTTL time.Duration
	healthTTL   time.Duration
	logger      *slog.Logger
}

// NewCachedBackend decorates next with provider-backed caching.
func NewCachedBackend(next Backend, provider cache.Provider, baselineTTL, healthTTL time.Duration, logger *slog.Logger) *CachedBackend {
	return &CachedBackend{
		next:        next,
		cache:       provider,
		baselineTTL: baselineTTL,
		healthTTL:   healthTTL,
		logger:      logger,
	}
}

func (b *CachedBackend) FetchRevertEvents(ctx context.Context, service, platform string, windowDays int) ([]models.RevertRecord, error) {
	return b.next.FetchRevertEvents(ctx, service, platform, windowDays)
}

func (b *CachedBackend) FetchBaseline(ctx context.Context, service, sli string, windowDays int) (models.SLIBaseline, error) {
	key := fmt.Sprintf("riskadvisor:baseline:%s:%s:%d", service, sli, windowDays)

	var cached models.SLIBaseline
	if ok := b.lookup(ctx, key, &cached); ok {
		return cached, nil
	}

	baseline, err := b.next.FetchBaseline(ctx, service, sli, windowDays)
	if err != nil {
		return models.SLIBaseline{}, err
	}
	b.store(ctx, key, baseline, b.baselineTTL)
	return baseline, nil
}

func (b *CachedBackend) FetchCurrentHealth(ctx context.Context, service, sli string, windowMinutes int) (models.SLICurrentHealth, error) {
	key := fmt.Sprintf("riskadvisor:health:%s:%s:%d", service, sli, windowMinutes)

	var cached models.SLICurrentHealth
	if ok := b.lookup(ctx, key, &cached); ok {
		return cached, nil
	}

	health, err := b.next.FetchCurrentHealth(ctx, service, sli, windowMinutes)
	if err != nil {
		return models.SLICurrentHealth{}, err
	}
	b.store(ctx, key, health, b.healthTTL)
	return health, nil
}

// lookup is best-effort: a cache failure degrades to a backend fetch.
func (b *CachedBackend) lookup(ctx context.Context, key string, out any) bool {
	raw, err := b.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			b.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		b.logger.Warn("cache entry corrupt, discarding", "key", key, "error", err)
		_ = b.cache.Del(ctx, key)
		return false
	}
	return true
}

func (b *CachedBackend) store(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := b.cache.Set(ctx, key, raw, ttl); err != nil {
		b.logger.Warn("cache set failed", "key", key, "error", err)
	}
}
