package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/facturacr/facturacr/internal/clave"
	"github.com/facturacr/facturacr/internal/clock"
	"github.com/facturacr/facturacr/internal/document/calc"
	documentdomain "github.com/facturacr/facturacr/internal/document/domain"
	"github.com/facturacr/facturacr/internal/document/validate"
	seriesdomain "github.com/facturacr/facturacr/internal/series/domain"
	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
	"github.com/facturacr/facturacr/pkg/db"
	"github.com/facturacr/facturacr/pkg/db/option"
	"github.com/facturacr/facturacr/pkg/repository"
)

// insertKeyAttempts bounds regeneration after an insert-time duplicate on the
// clave index, mirroring the generator's own reservation retry budget.
const insertKeyAttempts = 3

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Allocator seriesdomain.Allocator
	Keys      *clave.Generator
	Tenants   tenantdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	allocator seriesdomain.Allocator
	keys      *clave.Generator
	tenants   tenantdomain.Service

	docrepo repository.Repository[documentdomain.Document]
}

func NewService(p ServiceParam) documentdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("document.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		allocator: p.Allocator,
		keys:      p.Keys,
		tenants:   p.Tenants,
		docrepo:   repository.ProvideStore[documentdomain.Document](p.DB),
	}
}

// Create runs the full emission pipeline: business validation, consecutive
// allocation, key generation, tax computation, aggregation and a single
// transactional persist. A failure after allocation abandons the reserved
// consecutive; resubmission always draws a fresh one.
func (s *Service) Create(ctx context.Context, tenantID int64, req documentdomain.CreateRequest) (*documentdomain.Document, error) {
	if err := validate.Document(req); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.GetByID(ctx, snowflake.ID(tenantID))
	if err != nil {
		if errors.Is(err, tenantdomain.ErrNotFound) {
			return nil, documentdomain.ErrInvalidTenant
		}
		return nil, err
	}

	branch := req.Branch
	if branch == "" {
		branch = tenant.DefaultBranch
	}
	terminal := req.Terminal
	if terminal == "" {
		terminal = tenant.DefaultTerminal
	}

	alloc, err := s.allocator.Allocate(ctx, tenant.ID, branch, terminal, req.DocType)
	if err != nil {
		return nil, err
	}

	emission := s.clock.Now().UTC()
	key, err := s.keys.Generate(ctx, clave.Input{
		Issuer:      tenant.Identification,
		Consecutive: alloc.Consecutive,
		Emission:    emission,
	})
	if err != nil {
		return nil, err
	}

	results := make([]calc.LineResult, len(req.Lines))
	for i, line := range req.Lines {
		results[i], err = calc.ComputeLine(line)
		if err != nil {
			verr := &documentdomain.ValidationErrors{}
			verr.Add(fmt.Sprintf("lines[%d]", i), "invalid", err.Error())
			return nil, verr
		}
	}

	totals := calc.Aggregate(results, req.OtherCharges)
	if err := calc.Reconcile(totals); err != nil {
		s.log.Error("totals failed to reconcile",
			zap.String("clave", key),
			zap.Error(err),
		)
		return nil, err
	}

	var doc *documentdomain.Document
	for attempt := 1; ; attempt++ {
		doc = s.buildDocument(tenant.ID, req, alloc, key, emission, results, totals)

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(doc).Error
		})
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}

		// Lost a race on the clave index after the reservation check. A
		// fresh security code yields a fresh key; the consecutive stays.
		s.log.Warn("document key collided at insert",
			zap.String("clave", key),
			zap.Int("attempt", attempt),
		)
		if attempt == insertKeyAttempts {
			return nil, clave.ErrKeyGenerationExhausted
		}
		key, err = s.keys.Generate(ctx, clave.Input{
			Issuer:      tenant.Identification,
			Consecutive: alloc.Consecutive,
			Emission:    emission,
		})
		if err != nil {
			return nil, err
		}
	}

	s.log.Info("document created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("clave", key),
		zap.String("consecutive", alloc.Consecutive),
		zap.String("doc_type", string(req.DocType)),
		zap.String("grand_total", totals.GrandTotal.String()),
	)

	return doc, nil
}

func (s *Service) buildDocument(
	tenantID snowflake.ID,
	req documentdomain.CreateRequest,
	alloc seriesdomain.Allocation,
	key string,
	emission time.Time,
	results []calc.LineResult,
	totals calc.Totals,
) *documentdomain.Document {
	doc := &documentdomain.Document{
		ID:       s.genID.Generate(),
		TenantID: tenantID,

		DocType:     req.DocType,
		Clave:       key,
		Consecutivo: alloc.Consecutive,
		Status:      documentdomain.StatusBorrador,
		EmittedAt:   emission,

		SaleCondition:  req.SaleCondition,
		SaleOther:      req.SaleOther,
		CreditTermDays: req.CreditTermDays,
		PaymentMethod:  req.PaymentMethod,
		PaymentOther:   req.PaymentOther,

		CurrencyCode: req.CurrencyCode,
		ExchangeRate: req.ExchangeRate,

		NetTotal:         totals.NetTotal,
		TaxTotal:         totals.TaxTotal,
		ExemptTotal:      totals.ExemptTotal,
		DiscountTotal:    totals.DiscountTotal,
		OtherChargeTotal: totals.OtherChargeTotal,
		GrandTotal:       totals.GrandTotal,

		IntegrityHash: integrityHash(key, totals, emission),

		Notes:    req.Notes,
		Metadata: datatypes.JSONMap(req.Metadata),

		CreatedAt: emission,
		UpdatedAt: emission,
	}
	if doc.Metadata == nil {
		doc.Metadata = datatypes.JSONMap{}
	}

	if req.Receptor != nil {
		doc.ReceptorName = &req.Receptor.Name
		doc.ReceptorIdentification = &req.Receptor.Identification
		doc.ReceptorEmail = req.Receptor.Email
	}

	for i, in := range req.Lines {
		result := results[i]
		line := documentdomain.Line{
			ID:          s.genID.Generate(),
			DocumentID:  doc.ID,
			LineNumber:  i + 1,
			CabysCode:   in.CabysCode,
			Description: in.Description,
			Unit:        in.Unit,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			NetAmount:   result.NetAmount,
			CreatedAt:   emission,
		}
		if line.Unit == "" {
			line.Unit = "Unid"
		}

		if in.Discount != nil {
			line.Discount = &documentdomain.Discount{
				ID:        s.genID.Generate(),
				LineID:    line.ID,
				Code:      in.Discount.Code,
				CodeOther: in.Discount.CodeOther,
				Nature:    in.Discount.Nature,
				Percent:   in.Discount.Percent,
				Amount:    result.DiscountAmount,
				CreatedAt: emission,
			}
		}

		for j, taxIn := range in.Taxes {
			taxResult := result.Taxes[j]
			taxLine := documentdomain.TaxLine{
				ID:           s.genID.Generate(),
				LineID:       line.ID,
				TaxCode:      taxIn.Code,
				TaxCodeOther: taxIn.CodeOther,
				Tariff:       taxIn.Tariff,
				Rate:         taxResult.Rate,
				UnitTax:      taxResult.UnitTax,
				Factor:       taxResult.Factor,
				Amount:       taxResult.Collected(),
				CreatedAt:    emission,
			}
			if ex := taxIn.Exemption; ex != nil {
				taxLine.Exemption = &documentdomain.Exemption{
					ID:               s.genID.Generate(),
					TaxLineID:        taxLine.ID,
					DocType:          ex.DocType,
					DocTypeOther:     ex.DocTypeOther,
					DocumentNumber:   ex.DocumentNumber,
					Institution:      ex.Institution,
					InstitutionOther: ex.InstitutionOther,
					IssuedAt:         ex.IssuedAt,
					ExemptedRate:     taxResult.ExemptedRate,
					Amount:           taxResult.ExemptAmount,
					CreatedAt:        emission,
				}
			}
			line.Taxes = append(line.Taxes, taxLine)
		}

		doc.Lines = append(doc.Lines, line)
	}

	for i, in := range req.OtherCharges {
		doc.OtherCharges = append(doc.OtherCharges, documentdomain.OtherCharge{
			ID:             s.genID.Generate(),
			DocumentID:     doc.ID,
			ChargeType:     in.ChargeType,
			TypeOther:      in.TypeOther,
			Detail:         in.Detail,
			ThirdPartyID:   in.ThirdPartyID,
			ThirdPartyName: in.ThirdPartyName,
			Percent:        in.Percent,
			Amount:         totals.ChargeAmounts[i],
			CreatedAt:      emission,
		})
	}

	for _, in := range req.References {
		doc.References = append(doc.References, documentdomain.Reference{
			ID:         s.genID.Generate(),
			DocumentID: doc.ID,
			RefType:    in.RefType,
			RefCode:    in.RefCode,
			RefClave:   in.RefClave,
			RefNumber:  in.RefNumber,
			IssuedAt:   in.IssuedAt,
			Reason:     in.Reason,
			CreatedAt:  emission,
		})
	}

	return doc
}

func (s *Service) GetByID(ctx context.Context, tenantID int64, id string) (*documentdomain.Document, error) {
	docID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, documentdomain.ErrNotFound
	}

	doc, err := s.docrepo.FindOne(ctx,
		&documentdomain.Document{ID: docID, TenantID: snowflake.ID(tenantID)},
		preloadAll(),
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, documentdomain.ErrNotFound
	}
	return doc, nil
}

func (s *Service) GetByClave(ctx context.Context, key string) (*documentdomain.Document, error) {
	if !clave.Valid(key) {
		return nil, documentdomain.ErrNotFound
	}

	doc, err := s.docrepo.FindOne(ctx, &documentdomain.Document{Clave: key}, preloadAll())
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, documentdomain.ErrNotFound
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context, tenantID int64, req documentdomain.ListRequest) ([]documentdomain.Document, error) {
	filter := &documentdomain.Document{TenantID: snowflake.ID(tenantID)}
	if req.DocType != nil {
		filter.DocType = *req.DocType
	}
	if req.Status != nil {
		filter.Status = *req.Status
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Field: "id", Desc: true, Allow: map[string]bool{"id": true}}),
	}
	if req.BeforeID != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "id",
			Operator: option.LT,
			Value:    *req.BeforeID,
		}))
	}
	if req.EmittedFrom != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "emitted_at",
			Operator: option.GTE,
			Value:    *req.EmittedFrom,
		}))
	}
	if req.EmittedTo != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "emitted_at",
			Operator: option.LTE,
			Value:    *req.EmittedTo,
		}))
	}
	if req.Limit > 0 {
		options = append(options, option.WithLimit(req.Limit))
	}

	items, err := s.docrepo.Find(ctx, filter, options...)
	if err != nil {
		return nil, err
	}

	docs := make([]documentdomain.Document, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		docs = append(docs, *item)
	}
	return docs, nil
}

func preloadAll() option.QueryOption {
	return option.WithPreload(
		"Lines",
		"Lines.Discount",
		"Lines.Taxes",
		"Lines.Taxes.Exemption",
		"OtherCharges",
		"References",
	)
}

// integrityHash binds the key, the grand total and the emission instant so
// the signing pipeline can detect drift between persistence and submission.
func integrityHash(key string, totals calc.Totals, emission time.Time) string {
	sum := sha256.Sum256([]byte(
		key + "|" + totals.GrandTotal.StringFixed(calc.TotalsPrecision) + "|" + emission.Format(time.RFC3339),
	))
	return hex.EncodeToString(sum[:])
}
