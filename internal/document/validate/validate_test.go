package validate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacr/facturacr/internal/document/domain"
	"github.com/facturacr/facturacr/internal/hacienda"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validRequest() domain.CreateRequest {
	tariff := hacienda.TariffGeneral13
	return domain.CreateRequest{
		DocType:       hacienda.DocTypeFacturaElectronica,
		SaleCondition: hacienda.SaleContado,
		PaymentMethod: hacienda.PayEfectivo,
		CurrencyCode:  "CRC",
		ExchangeRate:  decimal.NewFromInt(1),
		Receptor: &domain.ReceptorInput{
			Name:           "Comercial El Valle S.A.",
			Identification: "3101234567",
		},
		Lines: []domain.LineInput{{
			CabysCode:   "8399000000000",
			Description: "Servicios profesionales",
			Unit:        "Sp",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(100000),
			Taxes: []domain.TaxInput{{
				Code:   hacienda.TaxIVA,
				Tariff: &tariff,
			}},
		}},
	}
}

// fields extracts the rejected field paths for assertion.
func fields(t *testing.T, err error) []string {
	t.Helper()
	var verr *domain.ValidationErrors
	require.ErrorAs(t, err, &verr)
	out := make([]string, 0, len(verr.Errors))
	for _, e := range verr.Errors {
		out = append(out, e.Field)
	}
	return out
}

func TestValidRequestPasses(t *testing.T) {
	assert.NoError(t, Document(validRequest()))
}

func TestCreditSaleRequiresTerm(t *testing.T) {
	req := validRequest()
	req.SaleCondition = hacienda.SaleCredito

	assert.Contains(t, fields(t, Document(req)), "credit_term_days")

	req.CreditTermDays = intPtr(0)
	assert.Contains(t, fields(t, Document(req)), "credit_term_days")

	req.CreditTermDays = intPtr(366)
	assert.Contains(t, fields(t, Document(req)), "credit_term_days")

	req.CreditTermDays = intPtr(30)
	assert.NoError(t, Document(req))
}

func TestOthersCodesNeedCompanionText(t *testing.T) {
	req := validRequest()
	req.SaleCondition = hacienda.SaleOtros
	req.PaymentMethod = hacienda.PayOtros
	req.Lines[0].Taxes[0] = domain.TaxInput{
		Code: hacienda.TaxOtros,
		Rate: decPtr("5"),
	}
	req.Lines[0].Discount = &domain.DiscountInput{
		Code:    hacienda.DiscountOtros,
		Percent: decPtr("10"),
	}
	req.OtherCharges = []domain.OtherChargeInput{{
		ChargeType: hacienda.ChargeOtros,
		Detail:     "cargo adicional",
		Amount:     decPtr("100"),
	}}

	got := fields(t, Document(req))
	assert.Contains(t, got, "sale_condition_other")
	assert.Contains(t, got, "payment_method_other")
	assert.Contains(t, got, "lines[0].taxes[0].code_other")
	assert.Contains(t, got, "lines[0].discount.code_other")
	assert.Contains(t, got, "other_charges[0].charge_type_other")

	// Filling in every companion clears the rejections.
	req.SaleOther = strPtr("arrendamiento con opción")
	req.PaymentOther = strPtr("criptomoneda")
	req.Lines[0].Taxes[0].CodeOther = strPtr("impuesto municipal")
	req.Lines[0].Discount.CodeOther = strPtr("convenio")
	req.OtherCharges[0].TypeOther = strPtr("flete")
	assert.NoError(t, Document(req))
}

func TestExemptionRequirements(t *testing.T) {
	tariff := hacienda.TariffGeneral13
	req := validRequest()
	req.Lines[0].Taxes[0] = domain.TaxInput{
		Code:   hacienda.TaxIVA,
		Tariff: &tariff,
		Exemption: &domain.ExemptionInput{
			DocType:        hacienda.ExemptionComprasAutorizadas,
			DocumentNumber: "AL",
			IssuedAt:       time.Now(),
			ExemptedRate:   decimal.NewFromInt(13),
		},
	}

	got := fields(t, Document(req))
	assert.Contains(t, got, "lines[0].taxes[0].exemption.document_number")
	assert.Contains(t, got, "lines[0].taxes[0].exemption.institution")

	req.Lines[0].Taxes[0].Exemption.DocumentNumber = "AL-001-2026"
	req.Lines[0].Taxes[0].Exemption.Institution = hacienda.InstMinisterioHacienda
	assert.NoError(t, Document(req))
}

func TestReceptorRequiredByDocType(t *testing.T) {
	req := validRequest()
	req.Receptor = nil
	assert.Contains(t, fields(t, Document(req)), "receptor")

	// Tickets stay over the counter; the receptor is optional.
	req.DocType = hacienda.DocTypeTiquete
	assert.NoError(t, Document(req))
}

func TestCreditNoteReferences(t *testing.T) {
	req := validRequest()
	req.DocType = hacienda.DocTypeNotaCredito
	assert.Contains(t, fields(t, Document(req)), "references")

	req.References = []domain.ReferenceInput{{
		RefType:  hacienda.RefNotaDebito,
		RefCode:  hacienda.RefCodeAnula,
		RefClave: strPtr("50607032600310112345600100001010000000042112345678"),
		IssuedAt: time.Now(),
	}}
	assert.Contains(t, fields(t, Document(req)), "references[0].ref_type")

	req.References[0].RefType = hacienda.RefFacturaElectronica
	assert.NoError(t, Document(req))
}

func TestReferenceNeedsClaveOrConsecutive(t *testing.T) {
	req := validRequest()
	req.DocType = hacienda.DocTypeNotaDebito
	req.References = []domain.ReferenceInput{{
		RefType:  hacienda.RefFacturaElectronica,
		RefCode:  hacienda.RefCodeReferencia,
		RefClave: strPtr("123"),
		IssuedAt: time.Now(),
	}}
	assert.Contains(t, fields(t, Document(req)), "references[0]")

	req.References[0].RefClave = nil
	req.References[0].RefNumber = strPtr("00100001010000000042")
	assert.NoError(t, Document(req))
}

func TestLineFieldRules(t *testing.T) {
	req := validRequest()
	req.Lines[0].CabysCode = "12345"
	req.Lines[0].Description = ""
	req.Lines[0].Quantity = decimal.Zero
	req.Lines[0].UnitPrice = decimal.NewFromInt(-1)
	req.Lines[0].Taxes = nil

	got := fields(t, Document(req))
	assert.Contains(t, got, "lines[0].cabys_code")
	assert.Contains(t, got, "lines[0].description")
	assert.Contains(t, got, "lines[0].quantity")
	assert.Contains(t, got, "lines[0].unit_price")
	assert.Contains(t, got, "lines[0].taxes")

	req = validRequest()
	req.Lines = nil
	assert.Contains(t, fields(t, Document(req)), "lines")
}

func TestDiscountShape(t *testing.T) {
	req := validRequest()
	req.Lines[0].Discount = &domain.DiscountInput{Code: hacienda.DiscountPromocional}
	assert.Contains(t, fields(t, Document(req)), "lines[0].discount")

	req.Lines[0].Discount.Percent = decPtr("10")
	req.Lines[0].Discount.Amount = decPtr("50")
	assert.Contains(t, fields(t, Document(req)), "lines[0].discount")

	req.Lines[0].Discount.Amount = nil
	assert.NoError(t, Document(req))

	req.Lines[0].Discount.Percent = decPtr("101")
	assert.Contains(t, fields(t, Document(req)), "lines[0].discount.percent")
}

func TestForeignCurrencyExchangeRate(t *testing.T) {
	req := validRequest()
	req.CurrencyCode = "USD"

	req.ExchangeRate = decimal.NewFromInt(1)
	assert.Contains(t, fields(t, Document(req)), "exchange_rate")

	req.ExchangeRate = decimal.Zero
	assert.Contains(t, fields(t, Document(req)), "exchange_rate")

	req.ExchangeRate = decimal.NewFromInt(20000)
	assert.Contains(t, fields(t, Document(req)), "exchange_rate")

	req.ExchangeRate = decimal.RequireFromString("512.43")
	assert.NoError(t, Document(req))

	req.CurrencyCode = "CRC"
	assert.Contains(t, fields(t, Document(req)), "exchange_rate")
}

func TestExportInvoiceZeroRatedIVA(t *testing.T) {
	req := validRequest()
	req.DocType = hacienda.DocTypeFacturaExportacion
	req.CurrencyCode = "USD"
	req.ExchangeRate = decimal.RequireFromString("512.43")

	assert.Contains(t, fields(t, Document(req)), "lines[0].taxes[0].tariff")

	exempt := hacienda.TariffExento
	req.Lines[0].Taxes[0].Tariff = &exempt
	assert.NoError(t, Document(req))
}

func TestAllViolationsReportedAtOnce(t *testing.T) {
	req := domain.CreateRequest{
		DocType:       hacienda.DocumentType("88"),
		SaleCondition: hacienda.SaleCredito,
		PaymentMethod: hacienda.PaymentMethod("77"),
	}

	err := Document(req)
	var verr *domain.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Errors), 5)
}
