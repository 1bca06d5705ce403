package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/facturacr/facturacr/internal/observability/obscontext"
	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
)

const contextTenantKey = "auth_tenant"

// APIKeyRequired authenticates requests with a bearer API key of the form
// "<tenant id>.<secret>". Tenant identity is derived solely from the key.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		tenant, err := s.tenantSvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithTenantID(c.Request.Context(), tenant.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextTenantKey, tenant)
		c.Next()
	}
}

// DocumentRateLimit throttles document issuance per tenant. It is a no-op
// when redis is not configured.
func (s *Server) DocumentRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		tenant := s.currentTenant(c)
		if tenant == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := s.limiter.AllowTenant(c.Request.Context(), tenant.ID.String())
		if err != nil {
			// Redis outages must not block issuance.
			c.Next()
			return
		}
		if !result.Allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), tenant.ID.String(), c.FullPath(), "token_bucket")
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), tenant.ID.String(), c.FullPath())
		c.Next()
	}
}

func (s *Server) currentTenant(c *gin.Context) *tenantdomain.Tenant {
	value, ok := c.Get(contextTenantKey)
	if !ok {
		return nil
	}
	tenant, ok := value.(*tenantdomain.Tenant)
	if !ok {
		return nil
	}
	return tenant
}
