package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
)

// CreateTenant provisions an issuing business. The raw API key is returned in
// this response and never again.
func (s *Server) CreateTenant(c *gin.Context) {
	var req tenantdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_json", "request body is not valid JSON"))
		return
	}

	tenant, apiKey, err := s.tenantSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": tenant, "api_key": apiKey})
}

func (s *Server) GetCurrentTenant(c *gin.Context) {
	tenant := s.currentTenant(c)
	if tenant == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tenant})
}
