// Package validate enforces cross-field business rules on document-creation
// requests. It runs before any consecutive number is allocated and has no
// side effects: a rejected request leaves no trace in the series counters.
package validate

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/facturacr/facturacr/internal/document/domain"
	"github.com/facturacr/facturacr/internal/hacienda"
)

const (
	minCreditTermDays = 1
	maxCreditTermDays = 365

	minExemptionDocNumber = 3
	maxExemptionDocNumber = 40

	// Rates above this are treated as data entry mistakes.
	maxExchangeRate = 10000
)

var (
	cabysRe       = regexp.MustCompile(`^\d{13}$`)
	claveRe       = regexp.MustCompile(`^\d{50}$`)
	consecutiveRe = regexp.MustCompile(`^\d{20}$`)

	one = decimal.NewFromInt(1)
)

// Document checks every business rule against the request and returns either
// nil or a *domain.ValidationErrors listing all violations at once.
func Document(req domain.CreateRequest) error {
	v := &domain.ValidationErrors{}

	validateHeader(v, req)
	validateCurrency(v, req)
	validateReceptor(v, req)
	validateLines(v, req)
	validateOtherCharges(v, req)
	validateReferences(v, req)

	return v.OrNil()
}

func validateHeader(v *domain.ValidationErrors, req domain.CreateRequest) {
	if !req.DocType.Valid() {
		v.Add("doc_type", "invalid", fmt.Sprintf("unknown document type %q", req.DocType))
	}

	if !req.SaleCondition.Valid() {
		v.Add("sale_condition", "invalid", fmt.Sprintf("unknown sale condition %q", req.SaleCondition))
	}
	if req.SaleCondition == hacienda.SaleOtros && isBlank(req.SaleOther) {
		v.Add("sale_condition_other", "required", "free-text description is required for sale condition 99")
	}
	if req.SaleCondition == hacienda.SaleCredito {
		switch {
		case req.CreditTermDays == nil:
			v.Add("credit_term_days", "required", "credit term is required for credit sales")
		case *req.CreditTermDays < minCreditTermDays || *req.CreditTermDays > maxCreditTermDays:
			v.Add("credit_term_days", "out_of_range",
				fmt.Sprintf("credit term must be between %d and %d days", minCreditTermDays, maxCreditTermDays))
		}
	}

	if !req.PaymentMethod.Valid() {
		v.Add("payment_method", "invalid", fmt.Sprintf("unknown payment method %q", req.PaymentMethod))
	}
	if req.PaymentMethod == hacienda.PayOtros && isBlank(req.PaymentOther) {
		v.Add("payment_method_other", "required", "free-text description is required for payment method 99")
	}
}

func validateCurrency(v *domain.ValidationErrors, req domain.CreateRequest) {
	if req.CurrencyCode == "" {
		v.Add("currency_code", "required", "currency code is required")
		return
	}

	rate := req.ExchangeRate
	if req.CurrencyCode == "CRC" {
		if !rate.Equal(one) {
			v.Add("exchange_rate", "invalid", "exchange rate must be 1 for CRC")
		}
		return
	}

	switch {
	case rate.Sign() <= 0:
		v.Add("exchange_rate", "invalid", "exchange rate must be positive for foreign currency")
	case rate.Equal(one):
		v.Add("exchange_rate", "invalid", "exchange rate must differ from 1 for foreign currency")
	case rate.GreaterThan(decimal.NewFromInt(maxExchangeRate)):
		v.Add("exchange_rate", "out_of_range", "exchange rate is unreasonably high")
	}
}

func validateReceptor(v *domain.ValidationErrors, req domain.CreateRequest) {
	if req.DocType.RequiresReceptor() && req.Receptor == nil {
		v.Add("receptor", "required",
			fmt.Sprintf("receptor is required for document type %s", req.DocType))
		return
	}
	if req.Receptor == nil {
		return
	}
	if req.Receptor.Name == "" {
		v.Add("receptor.name", "required", "receptor name is required")
	}
	if req.Receptor.Identification == "" {
		v.Add("receptor.identification", "required", "receptor identification is required")
	}
}

func validateLines(v *domain.ValidationErrors, req domain.CreateRequest) {
	if len(req.Lines) == 0 {
		v.Add("lines", "required", "at least one line item is required")
		return
	}

	for i, line := range req.Lines {
		field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }

		if !cabysRe.MatchString(line.CabysCode) {
			v.Add(field("cabys_code"), "invalid", "CABYS code must be exactly 13 digits")
		}
		if line.Description == "" {
			v.Add(field("description"), "required", "line description is required")
		}
		if line.Quantity.Sign() <= 0 {
			v.Add(field("quantity"), "invalid", "quantity must be positive")
		}
		if line.UnitPrice.Sign() < 0 {
			v.Add(field("unit_price"), "invalid", "unit price cannot be negative")
		}

		validateDiscount(v, field("discount"), line.Discount)

		if len(line.Taxes) == 0 {
			v.Add(field("taxes"), "required", "at least one tax must be specified")
		}
		for j, tax := range line.Taxes {
			validateTax(v, fmt.Sprintf("lines[%d].taxes[%d]", i, j), req.DocType, tax)
		}
	}
}

func validateDiscount(v *domain.ValidationErrors, field string, d *domain.DiscountInput) {
	if d == nil {
		return
	}
	if !d.Code.Valid() {
		v.Add(field+".code", "invalid", fmt.Sprintf("unknown discount code %q", d.Code))
	}
	if d.Code == hacienda.DiscountOtros && isBlank(d.CodeOther) {
		v.Add(field+".code_other", "required", "free-text description is required for discount code 99")
	}

	switch {
	case d.Percent == nil && d.Amount == nil:
		v.Add(field, "required", "discount needs either a percent or an amount")
	case d.Percent != nil && d.Amount != nil:
		v.Add(field, "invalid", "discount cannot carry both a percent and an amount")
	case d.Percent != nil && (d.Percent.Sign() < 0 || d.Percent.GreaterThan(decimal.NewFromInt(100))):
		v.Add(field+".percent", "out_of_range", "discount percent must be between 0 and 100")
	case d.Amount != nil && d.Amount.Sign() < 0:
		v.Add(field+".amount", "invalid", "discount amount cannot be negative")
	}
}

func validateTax(v *domain.ValidationErrors, field string, docType hacienda.DocumentType, tax domain.TaxInput) {
	if _, ok := hacienda.RuleFor(tax.Code); !ok {
		v.Add(field+".code", "invalid", fmt.Sprintf("unknown tax code %q", tax.Code))
		return
	}
	if tax.Code == hacienda.TaxOtros && isBlank(tax.CodeOther) {
		v.Add(field+".code_other", "required", "free-text description is required for tax code 99")
	}

	// Export invoices are zero-rated for IVA.
	if docType == hacienda.DocTypeFacturaExportacion && tax.Code == hacienda.TaxIVA && tax.Tariff != nil {
		if rate, ok := hacienda.TariffRate(*tax.Tariff); ok && rate.Sign() > 0 {
			v.Add(field+".tariff", "invalid", "export invoices must carry 0% IVA")
		}
	}

	validateExemption(v, field+".exemption", tax.Exemption)
}

func validateExemption(v *domain.ValidationErrors, field string, ex *domain.ExemptionInput) {
	if ex == nil {
		return
	}

	if n := len(ex.DocumentNumber); n < minExemptionDocNumber || n > maxExemptionDocNumber {
		v.Add(field+".document_number", "invalid",
			fmt.Sprintf("exemption document number must be %d to %d characters", minExemptionDocNumber, maxExemptionDocNumber))
	}
	if ex.Institution == "" {
		v.Add(field+".institution", "required", "exemption institution is required")
	}
	if ex.DocType == hacienda.ExemptionOtros && isBlank(ex.DocTypeOther) {
		v.Add(field+".doc_type_other", "required", "free-text description is required for exemption doc type 99")
	}
	if ex.Institution == hacienda.InstOtros && isBlank(ex.InstitutionOther) {
		v.Add(field+".institution_other", "required", "free-text description is required for institution 99")
	}
	if ex.ExemptedRate.Sign() < 0 {
		v.Add(field+".exempted_rate", "invalid", "exempted rate cannot be negative")
	}
}

func validateOtherCharges(v *domain.ValidationErrors, req domain.CreateRequest) {
	for i, charge := range req.OtherCharges {
		field := fmt.Sprintf("other_charges[%d]", i)

		if !charge.ChargeType.Valid() {
			v.Add(field+".charge_type", "invalid", fmt.Sprintf("unknown charge type %q", charge.ChargeType))
		}
		if charge.ChargeType == hacienda.ChargeOtros && isBlank(charge.TypeOther) {
			v.Add(field+".charge_type_other", "required", "free-text description is required for charge type 99")
		}
		if charge.Detail == "" {
			v.Add(field+".detail", "required", "charge detail is required")
		}

		switch {
		case charge.Percent == nil && charge.Amount == nil:
			v.Add(field, "required", "charge needs either a percent or an amount")
		case charge.Percent != nil && charge.Amount != nil:
			v.Add(field, "invalid", "charge cannot carry both a percent and an amount")
		case charge.Percent != nil && charge.Percent.Sign() < 0:
			v.Add(field+".percent", "invalid", "charge percent cannot be negative")
		case charge.Amount != nil && charge.Amount.Sign() < 0:
			v.Add(field+".amount", "invalid", "charge amount cannot be negative")
		}
	}
}

func validateReferences(v *domain.ValidationErrors, req domain.CreateRequest) {
	if req.DocType.RequiresReferences() && len(req.References) == 0 {
		v.Add("references", "required",
			fmt.Sprintf("document type %s must reference at least one prior document", req.DocType))
		return
	}

	for i, ref := range req.References {
		field := fmt.Sprintf("references[%d]", i)

		if req.DocType == hacienda.DocTypeNotaCredito && !hacienda.CreditNoteReferenceable(ref.RefType) {
			v.Add(field+".ref_type", "invalid",
				fmt.Sprintf("credit notes cannot reference document type %s", ref.RefType))
		}

		hasClave := ref.RefClave != nil && claveRe.MatchString(*ref.RefClave)
		hasNumber := ref.RefNumber != nil && consecutiveRe.MatchString(*ref.RefNumber)
		if !hasClave && !hasNumber {
			v.Add(field, "invalid",
				"reference needs a 50-digit clave or a 20-digit consecutive number")
		}
	}
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}
