package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	documentdomain "github.com/facturacr/facturacr/internal/document/domain"
	"github.com/facturacr/facturacr/internal/hacienda"
	seriesdomain "github.com/facturacr/facturacr/internal/series/domain"
	"github.com/facturacr/facturacr/pkg/db/pagination"
)

func (s *Server) CreateDocument(c *gin.Context) {
	tenant := s.currentTenant(c)
	if tenant == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req documentdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_json", "request body is not valid JSON"))
		return
	}
	c.Set("document_type", string(req.DocType))

	limits := s.limits.Get()
	switch {
	case len(req.Lines) > limits.MaxLinesPerDocument:
		AbortWithError(c, newValidationError("lines", "too_many_lines",
			fmt.Sprintf("a document carries at most %d lines", limits.MaxLinesPerDocument)))
		return
	case len(req.References) > limits.MaxReferencesPerDoc:
		AbortWithError(c, newValidationError("references", "too_many_references",
			fmt.Sprintf("a document carries at most %d references", limits.MaxReferencesPerDoc)))
		return
	case len(req.OtherCharges) > limits.MaxOtherChargesPerDoc:
		AbortWithError(c, newValidationError("other_charges", "too_many_other_charges",
			fmt.Sprintf("a document carries at most %d other charges", limits.MaxOtherChargesPerDoc)))
		return
	}

	branch := req.Branch
	if branch == "" {
		branch = tenant.DefaultBranch
	}
	terminal := req.Terminal
	if terminal == "" {
		terminal = tenant.DefaultTerminal
	}

	ctx := c.Request.Context()

	// The series lock briefly serializes creators on one numbering series to
	// cut counter contention across replicas; allocation stays correct
	// without it, so an unacquired lock never blocks issuance.
	token, locked, lockErr := s.limiter.LockSeries(ctx, tenant.ID.String(), branch, terminal, string(req.DocType))
	if lockErr == nil && locked && token != "" {
		defer func() {
			_ = s.limiter.ReleaseSeries(ctx, tenant.ID.String(), branch, terminal, string(req.DocType), token)
		}()
	}

	doc, err := s.documentSvc.Create(ctx, int64(tenant.ID), req)
	if err != nil {
		if errors.Is(err, seriesdomain.ErrSeriesExhausted) {
			s.obsMetrics.RecordSeriesExhausted(ctx, string(req.DocType))
		}
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordDocumentCreated(ctx, string(doc.DocType))
	c.JSON(http.StatusCreated, gin.H{"data": doc})
}

func (s *Server) GetDocumentByID(c *gin.Context) {
	tenant := s.currentTenant(c)
	if tenant == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	doc, err := s.documentSvc.GetByID(c.Request.Context(), int64(tenant.ID), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) GetDocumentByClave(c *gin.Context) {
	tenant := s.currentTenant(c)
	if tenant == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	key := strings.TrimSpace(c.Param("clave"))

	doc, err := s.documentSvc.GetByClave(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	// Key lookup is tenant scoped like every other document read.
	if doc.TenantID != tenant.ID {
		AbortWithError(c, documentdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) ListDocuments(c *gin.Context) {
	tenant := s.currentTenant(c)
	if tenant == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	req, page, err := buildListRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	docs, err := s.documentSvc.List(c.Request.Context(), int64(tenant.ID), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]*documentdomain.Document, 0, len(docs))
	for i := range docs {
		items = append(items, &docs[i])
	}
	pageInfo := pagination.BuildCursorPageInfo(items, int32(page.PageSize), func(d *documentdomain.Document) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: d.ID.String()})
		return token
	})
	if len(docs) > page.PageSize {
		docs = docs[:page.PageSize]
	}

	c.JSON(http.StatusOK, gin.H{"data": docs, "page_info": pageInfo})
}

func buildListRequest(c *gin.Context) (documentdomain.ListRequest, pagination.Pagination, error) {
	var req documentdomain.ListRequest

	if raw := strings.TrimSpace(c.Query("doc_type")); raw != "" {
		docType := hacienda.DocumentType(raw)
		if !docType.Valid() {
			return req, pagination.Pagination{}, newValidationError("doc_type", "invalid_doc_type", "unknown document type")
		}
		req.DocType = &docType
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := documentdomain.Status(strings.ToUpper(raw))
		if !validStatus(status) {
			return req, pagination.Pagination{}, newValidationError("status", "invalid_status", "unknown status")
		}
		req.Status = &status
	}

	from, err := parseOptionalTime(c.Query("emitted_from"), false)
	if err != nil {
		return req, pagination.Pagination{}, newValidationError("emitted_from", "invalid_time", "expected RFC3339 or YYYY-MM-DD")
	}
	req.EmittedFrom = from

	to, err := parseOptionalTime(c.Query("emitted_to"), true)
	if err != nil {
		return req, pagination.Pagination{}, newValidationError("emitted_to", "invalid_time", "expected RFC3339 or YYYY-MM-DD")
	}
	req.EmittedTo = to

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		return req, pagination.Pagination{}, newValidationError("page_size", "invalid_page_size", "invalid page size")
	}
	if page.PageSize <= 0 {
		page.PageSize = 10
	}
	if page.PageSize > 250 {
		page.PageSize = 250
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return req, page, newValidationError("page_token", "invalid_page_token", "invalid page token")
		}
		before, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return req, page, newValidationError("page_token", "invalid_page_token", "invalid page token")
		}
		req.BeforeID = &before
	}

	// Fetch one extra row so the page info can tell whether more remain.
	req.Limit = page.PageSize + 1

	return req, page, nil
}

func validStatus(s documentdomain.Status) bool {
	switch s {
	case documentdomain.StatusBorrador, documentdomain.StatusPendiente,
		documentdomain.StatusEnviado, documentdomain.StatusProcesando,
		documentdomain.StatusAceptado, documentdomain.StatusRechazado,
		documentdomain.StatusError, documentdomain.StatusCancelado:
		return true
	default:
		return false
	}
}
