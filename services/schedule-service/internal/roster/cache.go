package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
)

const (
	cacheKeyPrefix  = "clinicdesk:roster"
	cacheVersionKey = cacheKeyPrefix + ":ver"
)

// CachedProvider caches roster reads in redis so session opens do not hit the
// roster service on every view activation. Invalidation bumps a version
// counter rather than deleting keys, so stale entries simply age out at the
// TTL. Redis being down degrades to the inner provider.
type CachedProvider struct {
	inner  Provider
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedProvider(inner Provider, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProvider{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (p *CachedProvider) ListStaff(ctx context.Context, category string) ([]model.StaffMember, error) {
	key, ok := p.cacheKey(ctx, category)
	if ok {
		raw, err := p.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var staff []model.StaffMember
			if jsonErr := json.Unmarshal(raw, &staff); jsonErr == nil {
				return staff, nil
			}
			// A corrupt entry falls through to a fresh read.
		} else if err != redis.Nil {
			p.logger.Warn("roster cache read failed", "err", err)
			ok = false
		}
	}

	staff, err := p.inner.ListStaff(ctx, category)
	if err != nil {
		return nil, err
	}

	if ok {
		if raw, jsonErr := json.Marshal(staff); jsonErr == nil {
			if err := p.rdb.Set(ctx, key, raw, p.ttl).Err(); err != nil {
				p.logger.Warn("roster cache write failed", "err", err)
			}
		}
	}
	return staff, nil
}

// Invalidate drops all cached roster entries. Called when a staff-updated
// event arrives from the roster service.
func (p *CachedProvider) Invalidate(ctx context.Context) error {
	return p.rdb.Incr(ctx, cacheVersionKey).Err()
}

// cacheKey builds the versioned key for category. The bool is false when
// redis is unreachable and caching should be skipped for this call.
func (p *CachedProvider) cacheKey(ctx context.Context, category string) (string, bool) {
	ver, err := p.rdb.Get(ctx, cacheVersionKey).Int64()
	if err != nil && err != redis.Nil {
		p.logger.Warn("roster cache version read failed", "err", err)
		return "", false
	}
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("%s:%s:v%d", cacheKeyPrefix, category, ver), true
}
