package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/facturacr/facturacr/internal/clave"
	"github.com/facturacr/facturacr/internal/clock"
	documentdomain "github.com/facturacr/facturacr/internal/document/domain"
	documentrepository "github.com/facturacr/facturacr/internal/document/repository"
	"github.com/facturacr/facturacr/internal/hacienda"
	seriesdomain "github.com/facturacr/facturacr/internal/series/domain"
	seriesrepository "github.com/facturacr/facturacr/internal/series/repository"
	seriesservice "github.com/facturacr/facturacr/internal/series/service"
	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
	tenantservice "github.com/facturacr/facturacr/internal/tenant/service"
)

type fixture struct {
	svc    documentdomain.Service
	conn   *gorm.DB
	tenant *tenantdomain.Tenant
	clock  *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:document_%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, conn.AutoMigrate(
		&tenantdomain.Tenant{},
		&seriesdomain.Counter{},
		&documentdomain.Document{},
		&documentdomain.Line{},
		&documentdomain.TaxLine{},
		&documentdomain.Exemption{},
		&documentdomain.Discount{},
		&documentdomain.OtherCharge{},
		&documentdomain.Reference{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	tenants := tenantservice.NewService(tenantservice.ServiceParam{DB: conn, Log: log, GenID: node})
	tenant, _, err := tenants.Create(context.Background(), tenantdomain.CreateRequest{
		Name:           "Comercial El Valle S.A.",
		Identification: "3-101-123456",
	})
	require.NoError(t, err)

	allocator := seriesservice.NewService(seriesservice.ServiceParam{
		Log:  log,
		Repo: seriesrepository.NewRepository(conn, node),
	})

	fake := clock.NewFakeClock(time.Date(2026, time.March, 7, 14, 30, 0, 0, time.UTC))

	keys := clave.NewGenerator(clave.GeneratorParam{
		Log:      log,
		Security: clave.NewCryptoSource(),
		Reserver: documentrepository.NewClaveReserver(conn),
	})

	svc := NewService(ServiceParam{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Allocator: allocator,
		Keys:      keys,
		Tenants:   tenants,
	})

	return &fixture{svc: svc, conn: conn, tenant: tenant, clock: fake}
}

func invoiceRequest() documentdomain.CreateRequest {
	tariff := hacienda.TariffGeneral13
	return documentdomain.CreateRequest{
		DocType:       hacienda.DocTypeFacturaElectronica,
		SaleCondition: hacienda.SaleContado,
		PaymentMethod: hacienda.PayEfectivo,
		CurrencyCode:  "CRC",
		ExchangeRate:  decimal.NewFromInt(1),
		Receptor: &documentdomain.ReceptorInput{
			Name:           "Cliente Ejemplo S.A.",
			Identification: "3101654321",
		},
		Lines: []documentdomain.LineInput{{
			CabysCode:   "8399000000000",
			Description: "Servicios profesionales",
			Unit:        "Sp",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(100000),
			Taxes: []documentdomain.TaxInput{{
				Code:   hacienda.TaxIVA,
				Tariff: &tariff,
			}},
		}},
	}
}

func (f *fixture) counterValue(t *testing.T) int64 {
	t.Helper()
	var counters []seriesdomain.Counter
	require.NoError(t, f.conn.Find(&counters).Error)
	if len(counters) == 0 {
		return 0
	}
	return counters[0].LastValue
}

func TestCreateFullPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Create(ctx, int64(f.tenant.ID), invoiceRequest())
	require.NoError(t, err)

	assert.Equal(t, "00100001010000000001", doc.Consecutivo)
	assert.Len(t, doc.Clave, 50)

	c, err := clave.Parse(doc.Clave)
	require.NoError(t, err)
	assert.Equal(t, "003101123456", c.Issuer)
	assert.Equal(t, doc.Consecutivo, c.Consecutive())
	assert.Equal(t, "07", c.Day)
	assert.Equal(t, "03", c.Month)
	assert.Equal(t, "26", c.Year)

	assert.Equal(t, documentdomain.StatusBorrador, doc.Status)
	assert.True(t, doc.NetTotal.Equal(decimal.NewFromInt(100000)), doc.NetTotal.String())
	assert.True(t, doc.TaxTotal.Equal(decimal.NewFromInt(13000)), doc.TaxTotal.String())
	assert.True(t, doc.GrandTotal.Equal(decimal.NewFromInt(113000)), doc.GrandTotal.String())
	assert.Len(t, doc.IntegrityHash, 64)

	// Fully persisted with children.
	got, err := f.svc.GetByID(ctx, int64(f.tenant.ID), doc.ID.String())
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	require.Len(t, got.Lines[0].Taxes, 1)
	assert.True(t, got.Lines[0].Taxes[0].Amount.Equal(decimal.NewFromInt(13000)))

	// The grand total reconciles against the persisted components.
	sum := got.NetTotal.Add(got.TaxTotal).Add(got.OtherChargeTotal)
	assert.True(t, got.GrandTotal.Equal(sum))
}

func TestRejectedRequestLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Credit sale without a term fails validation before any allocation.
	req := invoiceRequest()
	req.SaleCondition = hacienda.SaleCredito

	_, err := f.svc.Create(ctx, int64(f.tenant.ID), req)
	var verr *documentdomain.ValidationErrors
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, int64(0), f.counterValue(t))

	var count int64
	require.NoError(t, f.conn.Model(&documentdomain.Document{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// The next successful document takes sequential 1, not 2.
	doc, err := f.svc.Create(ctx, int64(f.tenant.ID), invoiceRequest())
	require.NoError(t, err)
	assert.Equal(t, "00100001010000000001", doc.Consecutivo)
}

func TestFailureAfterAllocationLeavesGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A line that passes schema-level validation but fails computation:
	// unit-based fuel tax without a unit amount.
	req := invoiceRequest()
	req.Lines[0].Taxes = []documentdomain.TaxInput{{Code: hacienda.TaxUnicoCombustibles}}

	_, err := f.svc.Create(ctx, int64(f.tenant.ID), req)
	require.Error(t, err)

	// The consecutive was reserved and is now abandoned.
	assert.Equal(t, int64(1), f.counterValue(t))

	doc, err := f.svc.Create(ctx, int64(f.tenant.ID), invoiceRequest())
	require.NoError(t, err)
	assert.Equal(t, "00100001010000000002", doc.Consecutivo)
}

func TestCreateConsecutivesAreSequential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	claves := map[string]bool{}
	for i := 1; i <= 5; i++ {
		doc, err := f.svc.Create(ctx, int64(f.tenant.ID), invoiceRequest())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("001000010100000000%02d", i), doc.Consecutivo)
		claves[doc.Clave] = true
	}
	assert.Len(t, claves, 5)
}

func TestCreateUnknownTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), 424242, invoiceRequest())
	assert.ErrorIs(t, err, documentdomain.ErrInvalidTenant)
}

func TestGetByClave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Create(ctx, int64(f.tenant.ID), invoiceRequest())
	require.NoError(t, err)

	got, err := f.svc.GetByClave(ctx, doc.Clave)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = f.svc.GetByClave(ctx, "not-a-clave")
	assert.ErrorIs(t, err, documentdomain.ErrNotFound)
}

func TestListFiltersByDocType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, int64(f.tenant.ID), invoiceRequest())
	require.NoError(t, err)

	ticket := invoiceRequest()
	ticket.DocType = hacienda.DocTypeTiquete
	ticket.Receptor = nil
	_, err = f.svc.Create(ctx, int64(f.tenant.ID), ticket)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, int64(f.tenant.ID), documentdomain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	docType := hacienda.DocTypeTiquete
	tickets, err := f.svc.List(ctx, int64(f.tenant.ID), documentdomain.ListRequest{DocType: &docType})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, hacienda.DocTypeTiquete, tickets[0].DocType)
}

func TestCreditNoteWithReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoice, err := f.svc.Create(ctx, int64(f.tenant.ID), invoiceRequest())
	require.NoError(t, err)

	note := invoiceRequest()
	note.DocType = hacienda.DocTypeNotaCredito
	note.References = []documentdomain.ReferenceInput{{
		RefType:  hacienda.RefFacturaElectronica,
		RefCode:  hacienda.RefCodeAnula,
		RefClave: &invoice.Clave,
		IssuedAt: invoice.EmittedAt,
	}}

	doc, err := f.svc.Create(ctx, int64(f.tenant.ID), note)
	require.NoError(t, err)

	// Credit notes run their own counter.
	assert.Equal(t, "00100001030000000001", doc.Consecutivo)

	got, err := f.svc.GetByID(ctx, int64(f.tenant.ID), doc.ID.String())
	require.NoError(t, err)
	require.Len(t, got.References, 1)
	assert.Equal(t, invoice.Clave, *got.References[0].RefClave)
}

func TestExemptionAndChargesPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tariff := hacienda.TariffGeneral13
	req := invoiceRequest()
	req.Lines[0].Taxes = []documentdomain.TaxInput{{
		Code:   hacienda.TaxIVA,
		Tariff: &tariff,
		Exemption: &documentdomain.ExemptionInput{
			DocType:        hacienda.ExemptionComprasAutorizadas,
			DocumentNumber: "AL-001-2026",
			Institution:    hacienda.InstMinisterioHacienda,
			IssuedAt:       time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
			ExemptedRate:   decimal.NewFromInt(13),
		},
	}}
	flat := decimal.NewFromInt(500)
	req.OtherCharges = []documentdomain.OtherChargeInput{{
		ChargeType: hacienda.ChargeTimbreCruzRoja,
		Detail:     "Timbre de la Cruz Roja",
		Amount:     &flat,
	}}

	doc, err := f.svc.Create(ctx, int64(f.tenant.ID), req)
	require.NoError(t, err)

	assert.True(t, doc.TaxTotal.IsZero(), doc.TaxTotal.String())
	assert.True(t, doc.ExemptTotal.Equal(decimal.NewFromInt(13000)), doc.ExemptTotal.String())
	assert.True(t, doc.GrandTotal.Equal(decimal.NewFromInt(100500)), doc.GrandTotal.String())

	got, err := f.svc.GetByID(ctx, int64(f.tenant.ID), doc.ID.String())
	require.NoError(t, err)
	require.Len(t, got.Lines[0].Taxes, 1)
	require.NotNil(t, got.Lines[0].Taxes[0].Exemption)
	assert.Equal(t, "AL-001-2026", got.Lines[0].Taxes[0].Exemption.DocumentNumber)
	require.Len(t, got.OtherCharges, 1)
	assert.True(t, got.OtherCharges[0].Amount.Equal(flat))
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Create(ctx, int64(f.tenant.ID), invoiceRequest())
	require.NoError(t, err)

	_, err = f.svc.GetByID(ctx, int64(f.tenant.ID)+1, doc.ID.String())
	assert.ErrorIs(t, err, documentdomain.ErrNotFound)

	other, err := f.svc.List(ctx, int64(f.tenant.ID)+1, documentdomain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

type sequenceSource struct {
	codes []string
	next  int
}

func (s *sequenceSource) Code() (string, error) {
	code := s.codes[s.next]
	s.next++
	return code, nil
}

type openReserver struct{}

func (openReserver) Reserve(ctx context.Context, key string) error { return nil }

func TestCreateRetriesClaveCollisionAtInsert(t *testing.T) {
	f := newFixture(t)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	log := zap.NewNop()
	source := &sequenceSource{codes: []string{"11111111", "22222222"}}

	// A reserver that never reports conflicts pushes the collision to the
	// documents unique index, where a concurrent insert would surface it.
	keys := clave.NewGenerator(clave.GeneratorParam{
		Log:      log,
		Security: source,
		Reserver: openReserver{},
	})
	svc := NewService(ServiceParam{
		DB:    f.conn,
		Log:   log,
		GenID: node,
		Clock: f.clock,
		Allocator: seriesservice.NewService(seriesservice.ServiceParam{
			Log:  log,
			Repo: seriesrepository.NewRepository(f.conn, node),
		}),
		Keys:    keys,
		Tenants: tenantservice.NewService(tenantservice.ServiceParam{DB: f.conn, Log: log, GenID: node}),
	})

	issuer, err := clave.NormalizeIssuer(f.tenant.Identification)
	require.NoError(t, err)
	emission := f.clock.Now().UTC()
	taken, err := clave.Build(issuer, emission, "00100000010100000001", "11111111")
	require.NoError(t, err)

	require.NoError(t, f.conn.Create(&documentdomain.Document{
		ID:            node.Generate(),
		TenantID:      f.tenant.ID,
		DocType:       hacienda.DocTypeFacturaElectronica,
		Clave:         taken,
		Consecutivo:   "00100000010199999999",
		Status:        documentdomain.StatusBorrador,
		SaleCondition: hacienda.SaleContado,
		PaymentMethod: hacienda.PayEfectivo,
		EmittedAt:     emission,
	}).Error)

	doc, err := svc.Create(context.Background(), int64(f.tenant.ID), invoiceRequest())
	require.NoError(t, err)

	want, err := clave.Build(issuer, emission, "00100000010100000001", "22222222")
	require.NoError(t, err)
	assert.Equal(t, want, doc.Clave)
	assert.Equal(t, 2, source.next, "expected one fresh security code after the index collision")
}
