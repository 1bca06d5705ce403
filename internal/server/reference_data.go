package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/facturacr/facturacr/internal/hacienda"
)

// Reference endpoints expose the Hacienda code catalogs the API accepts, so
// integrators do not have to transcribe them from the Anexos y Estructuras PDF.

func (s *Server) ListDocumentTypes(c *gin.Context) {
	items := make([]gin.H, 0, len(hacienda.DocumentTypes))
	for _, t := range hacienda.DocumentTypes {
		items = append(items, gin.H{
			"code":                t,
			"requires_receptor":   t.RequiresReceptor(),
			"requires_references": t.RequiresReferences(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListTaxCodes(c *gin.Context) {
	items := make([]gin.H, 0, len(hacienda.TaxCodes))
	for _, code := range hacienda.TaxCodes {
		rule, ok := hacienda.RuleFor(code)
		if !ok {
			continue
		}
		items = append(items, gin.H{
			"code":             code,
			"kind":             rule.Kind,
			"rate_from_tariff": rule.RateFromTariff,
			"allows_factor":    rule.AllowsFactor,
			"allows_exemption": rule.AllowsExemption,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListIVATariffs(c *gin.Context) {
	items := make([]gin.H, 0, len(hacienda.IVATariffs))
	for _, tariff := range hacienda.IVATariffs {
		rate, ok := hacienda.TariffRate(tariff)
		if !ok {
			continue
		}
		items = append(items, gin.H{
			"code": tariff,
			"rate": rate,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListSaleConditions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": hacienda.SaleConditions})
}

func (s *Server) ListPaymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": hacienda.PaymentMethods})
}

func (s *Server) ListDiscountTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": hacienda.DiscountTypes})
}

func (s *Server) ListOtherChargeTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": hacienda.OtherChargeTypes})
}
