package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
)

// Short TTL: a revoked or deactivated tenant keeps issuing for at most this
// long after the change.
const defaultAuthTTL = 45 * time.Second

// AuthCache stores resolved API-key lookups so the bcrypt comparison only
// runs on cache misses. Keys are stored hashed, never raw.
type AuthCache struct {
	tenants Cache[string, *tenantdomain.Tenant]
	ttl     time.Duration
}

func NewAuthCache() *AuthCache {
	return &AuthCache{
		tenants: NewTTLCache[string, *tenantdomain.Tenant](),
		ttl:     defaultAuthTTL,
	}
}

func (c *AuthCache) Get(apiKey string) (*tenantdomain.Tenant, bool) {
	if c == nil {
		return nil, false
	}
	return c.tenants.Get(authKey(apiKey))
}

func (c *AuthCache) Set(apiKey string, tenant *tenantdomain.Tenant) {
	if c == nil || tenant == nil {
		return
	}
	c.tenants.Set(authKey(apiKey), tenant, c.ttl)
}

func (c *AuthCache) Invalidate(apiKey string) {
	if c == nil {
		return
	}
	c.tenants.Delete(authKey(apiKey))
}

func authKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
