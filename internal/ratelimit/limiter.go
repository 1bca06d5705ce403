package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/facturacr/facturacr/internal/config"
)

const (
	keyDocumentCreateTenant = "docs:create:tenant:%s"
	keyDocumentSeriesLock   = "docs:series:lock:%s:%s:%s:%s"

	seriesLockTTL = 5 * time.Second

	seriesLockAttempts = 4
	seriesLockBackoff  = 25 * time.Millisecond
)

// seriesLocker is the single-attempt lock primitive behind LockSeries.
type seriesLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// DocumentLimiter throttles per-tenant document issuance. It is disabled when
// no redis address is configured; every check then allows.
type DocumentLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker seriesLocker
	limits *config.LimitsHolder
}

func NewDocumentLimiter(cfg config.Config, limits *config.LimitsHolder) *DocumentLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &DocumentLimiter{enabled: false}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &DocumentLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		limits:  limits,
	}
}

func (l *DocumentLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowTenant consumes one issuance token for the tenant.
func (l *DocumentLimiter) AllowTenant(ctx context.Context, tenantID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	limits := l.limits.Get()
	rate := float64(limits.RequestsPerMinute) / 60.0
	key := fmt.Sprintf(keyDocumentCreateTenant, strings.TrimSpace(tenantID))
	return l.bucket.Allow(ctx, key, rate, limits.Burst)
}

// LockSeries takes a short cross-replica lock on one numbering series so
// concurrent creators take turns at the counter instead of racing its guarded
// update. A contended lock is waited on briefly; the last attempt falls
// through unlocked, because holding the lock is never required for
// correctness. Callers must release with the returned token.
func (l *DocumentLimiter) LockSeries(ctx context.Context, tenantID, branch, terminal, docType string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(
		keyDocumentSeriesLock,
		strings.TrimSpace(tenantID),
		strings.TrimSpace(branch),
		strings.TrimSpace(terminal),
		strings.TrimSpace(docType),
	)
	for attempt := 1; ; attempt++ {
		token, ok, err := l.locker.TryLock(ctx, key, seriesLockTTL)
		if err != nil || ok {
			return token, ok, err
		}
		if attempt == seriesLockAttempts {
			return "", false, nil
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(seriesLockBackoff):
		}
	}
}

// ReleaseSeries releases a series lock taken with LockSeries.
func (l *DocumentLimiter) ReleaseSeries(ctx context.Context, tenantID, branch, terminal, docType, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(
		keyDocumentSeriesLock,
		strings.TrimSpace(tenantID),
		strings.TrimSpace(branch),
		strings.TrimSpace(terminal),
		strings.TrimSpace(docType),
	)
	return l.locker.Release(ctx, key, token)
}
