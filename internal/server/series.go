package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/facturacr/facturacr/internal/hacienda"
)

// PeekNextConsecutive previews the consecutive number the series would hand
// out next. Nothing is reserved; a concurrent issuance can still take it.
func (s *Server) PeekNextConsecutive(c *gin.Context) {
	tenant := s.currentTenant(c)
	if tenant == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	docType := hacienda.DocumentType(strings.TrimSpace(c.Query("doc_type")))
	if !docType.Valid() {
		AbortWithError(c, newValidationError("doc_type", "invalid_doc_type", "unknown document type"))
		return
	}

	branch := strings.TrimSpace(c.Query("branch"))
	if branch == "" {
		branch = tenant.DefaultBranch
	}
	terminal := strings.TrimSpace(c.Query("terminal"))
	if terminal == "" {
		terminal = tenant.DefaultTerminal
	}

	next, err := s.allocator.Peek(c.Request.Context(), tenant.ID, branch, terminal, docType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"branch":      branch,
		"terminal":    terminal,
		"doc_type":    docType,
		"consecutive": next,
	}})
}
