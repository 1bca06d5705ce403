// Package hacienda holds the Ministry of Finance code catalogs for Costa Rican
// electronic documents (Anexos y Estructuras v4.4).
// These codes are wire-level constants. Do NOT rename or repurpose once a
// document has been issued with them.
package hacienda

// DocumentType identifies the kind of electronic voucher.
type DocumentType string

const (
	DocTypeFacturaElectronica DocumentType = "01"
	DocTypeNotaDebito         DocumentType = "02"
	DocTypeNotaCredito        DocumentType = "03"
	DocTypeTiquete            DocumentType = "04"
	DocTypeFacturaExportacion DocumentType = "05"
	DocTypeFacturaCompra      DocumentType = "06"
	DocTypeReciboPago         DocumentType = "07"
)

// DocumentTypes lists every valid document type in catalog order.
var DocumentTypes = []DocumentType{
	DocTypeFacturaElectronica,
	DocTypeNotaDebito,
	DocTypeNotaCredito,
	DocTypeTiquete,
	DocTypeFacturaExportacion,
	DocTypeFacturaCompra,
	DocTypeReciboPago,
}

func (t DocumentType) Valid() bool {
	switch t {
	case DocTypeFacturaElectronica, DocTypeNotaDebito, DocTypeNotaCredito,
		DocTypeTiquete, DocTypeFacturaExportacion, DocTypeFacturaCompra, DocTypeReciboPago:
		return true
	default:
		return false
	}
}

// RequiresReceptor reports whether the document type demands receiver data.
// Only electronic tickets may omit it.
func (t DocumentType) RequiresReceptor() bool {
	return t != DocTypeTiquete
}

// RequiresReferences reports whether the document type must reference a prior
// document (notes and payment receipts).
func (t DocumentType) RequiresReferences() bool {
	switch t {
	case DocTypeNotaCredito, DocTypeNotaDebito, DocTypeReciboPago:
		return true
	default:
		return false
	}
}

// SaleCondition is the sale condition catalog.
type SaleCondition string

const (
	SaleContado                 SaleCondition = "01"
	SaleCredito                 SaleCondition = "02"
	SaleConsignacion            SaleCondition = "03"
	SaleApartado                SaleCondition = "04"
	SaleArrendamientoOpcion     SaleCondition = "05"
	SaleArrendamientoFinanciero SaleCondition = "06"
	SaleCobroTercero            SaleCondition = "07"
	SaleServiciosEstadoCredito  SaleCondition = "08"
	SaleCredito90Dias           SaleCondition = "10"
	SaleMercanciaNoNacional     SaleCondition = "12"
	SaleBienesUsados            SaleCondition = "13"
	SaleArrendamientoOperativo  SaleCondition = "14"
	SaleArrendamientoFinanc     SaleCondition = "15"
	SaleOtros                   SaleCondition = "99"
)

// SaleConditions lists every valid sale condition in catalog order.
var SaleConditions = []SaleCondition{
	SaleContado, SaleCredito, SaleConsignacion, SaleApartado,
	SaleArrendamientoOpcion, SaleArrendamientoFinanciero, SaleCobroTercero,
	SaleServiciosEstadoCredito, SaleCredito90Dias, SaleMercanciaNoNacional,
	SaleBienesUsados, SaleArrendamientoOperativo, SaleArrendamientoFinanc, SaleOtros,
}

func (c SaleCondition) Valid() bool {
	switch c {
	case SaleContado, SaleCredito, SaleConsignacion, SaleApartado,
		SaleArrendamientoOpcion, SaleArrendamientoFinanciero, SaleCobroTercero,
		SaleServiciosEstadoCredito, SaleCredito90Dias, SaleMercanciaNoNacional,
		SaleBienesUsados, SaleArrendamientoOperativo, SaleArrendamientoFinanc, SaleOtros:
		return true
	default:
		return false
	}
}

// PaymentMethod is the payment method catalog.
type PaymentMethod string

const (
	PayEfectivo         PaymentMethod = "01"
	PayTarjeta          PaymentMethod = "02"
	PayCheque           PaymentMethod = "03"
	PayTransferencia    PaymentMethod = "04"
	PayRecaudadoTercero PaymentMethod = "05"
	PayOtros            PaymentMethod = "99"
)

// PaymentMethods lists every valid payment method in catalog order.
var PaymentMethods = []PaymentMethod{
	PayEfectivo, PayTarjeta, PayCheque, PayTransferencia, PayRecaudadoTercero, PayOtros,
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayEfectivo, PayTarjeta, PayCheque, PayTransferencia, PayRecaudadoTercero, PayOtros:
		return true
	default:
		return false
	}
}

// TaxCode identifies a tax in the national catalog.
type TaxCode string

const (
	TaxIVA                TaxCode = "01"
	TaxSelectivoConsumo   TaxCode = "02"
	TaxUnicoCombustibles  TaxCode = "03"
	TaxBebidasAlcoholicas TaxCode = "04"
	TaxBebidasSinAlcohol  TaxCode = "05"
	TaxProductosTabaco    TaxCode = "06"
	TaxIVACalculoEspecial TaxCode = "07"
	TaxIVABienesUsados    TaxCode = "08"
	TaxCemento            TaxCode = "12"
	TaxOtros              TaxCode = "99"
)

// TaxCodes lists every valid tax code in catalog order.
var TaxCodes = []TaxCode{
	TaxIVA, TaxSelectivoConsumo, TaxUnicoCombustibles, TaxBebidasAlcoholicas,
	TaxBebidasSinAlcohol, TaxProductosTabaco, TaxIVACalculoEspecial,
	TaxIVABienesUsados, TaxCemento, TaxOtros,
}

// IVATariff selects among the statutory IVA rates.
type IVATariff string

const (
	TariffExento         IVATariff = "01"
	TariffReducida1      IVATariff = "02"
	TariffReducida2      IVATariff = "03"
	TariffReducida4      IVATariff = "04"
	TariffTransitorio0   IVATariff = "05"
	TariffTransitorio4   IVATariff = "06"
	TariffTransitorio8   IVATariff = "07"
	TariffGeneral13      IVATariff = "08"
	TariffReducida05     IVATariff = "09"
	TariffExenta         IVATariff = "10"
	TariffCeroSinCredito IVATariff = "11"
)

// IVATariffs lists every valid IVA tariff in catalog order.
var IVATariffs = []IVATariff{
	TariffExento, TariffReducida1, TariffReducida2, TariffReducida4,
	TariffTransitorio0, TariffTransitorio4, TariffTransitorio8,
	TariffGeneral13, TariffReducida05, TariffExenta, TariffCeroSinCredito,
}

// DiscountType is the discount nature catalog applied to line items.
type DiscountType string

const (
	DiscountRegalia      DiscountType = "01"
	DiscountRegaliaIVA   DiscountType = "02"
	DiscountBonificacion DiscountType = "03"
	DiscountVolumen      DiscountType = "04"
	DiscountEstacional   DiscountType = "05"
	DiscountPromocional  DiscountType = "06"
	DiscountComercial    DiscountType = "07"
	DiscountFrecuencia   DiscountType = "08"
	DiscountSostenido    DiscountType = "09"
	DiscountOtros        DiscountType = "99"
)

// DiscountTypes lists every valid discount nature in catalog order.
var DiscountTypes = []DiscountType{
	DiscountRegalia, DiscountRegaliaIVA, DiscountBonificacion, DiscountVolumen,
	DiscountEstacional, DiscountPromocional, DiscountComercial, DiscountFrecuencia,
	DiscountSostenido, DiscountOtros,
}

func (d DiscountType) Valid() bool {
	switch d {
	case DiscountRegalia, DiscountRegaliaIVA, DiscountBonificacion, DiscountVolumen,
		DiscountEstacional, DiscountPromocional, DiscountComercial, DiscountFrecuencia,
		DiscountSostenido, DiscountOtros:
		return true
	default:
		return false
	}
}

// OtherChargeType is the catalog of document-level surcharges.
type OtherChargeType string

const (
	ChargeContribucionParafiscal OtherChargeType = "01"
	ChargeTimbreCruzRoja         OtherChargeType = "02"
	ChargeTimbreBomberos         OtherChargeType = "03"
	ChargeCobroTercero           OtherChargeType = "04"
	ChargeCostosExportacion      OtherChargeType = "05"
	ChargeImpuestoServicio       OtherChargeType = "06"
	ChargeTimbreColegios         OtherChargeType = "07"
	ChargeDepositosGarantia      OtherChargeType = "08"
	ChargeMultas                 OtherChargeType = "09"
	ChargeInteresMoratorio       OtherChargeType = "10"
	ChargeOtros                  OtherChargeType = "99"
)

// OtherChargeTypes lists every valid surcharge type in catalog order.
var OtherChargeTypes = []OtherChargeType{
	ChargeContribucionParafiscal, ChargeTimbreCruzRoja, ChargeTimbreBomberos,
	ChargeCobroTercero, ChargeCostosExportacion, ChargeImpuestoServicio,
	ChargeTimbreColegios, ChargeDepositosGarantia, ChargeMultas,
	ChargeInteresMoratorio, ChargeOtros,
}

func (c OtherChargeType) Valid() bool {
	switch c {
	case ChargeContribucionParafiscal, ChargeTimbreCruzRoja, ChargeTimbreBomberos,
		ChargeCobroTercero, ChargeCostosExportacion, ChargeImpuestoServicio,
		ChargeTimbreColegios, ChargeDepositosGarantia, ChargeMultas,
		ChargeInteresMoratorio, ChargeOtros:
		return true
	default:
		return false
	}
}

// ExemptionDocType is the catalog of exemption authorization documents.
type ExemptionDocType string

const (
	ExemptionComprasAutorizadas   ExemptionDocType = "01"
	ExemptionVentasDiplomaticos   ExemptionDocType = "02"
	ExemptionLeyEspecial          ExemptionDocType = "03"
	ExemptionAutorizacionLocal    ExemptionDocType = "04"
	ExemptionServiciosIngenieria  ExemptionDocType = "05"
	ExemptionServiciosTurismoICT  ExemptionDocType = "06"
	ExemptionReciclaje            ExemptionDocType = "07"
	ExemptionZonaFranca           ExemptionDocType = "08"
	ExemptionServiciosExportacion ExemptionDocType = "09"
	ExemptionCorporacionMunicipal ExemptionDocType = "10"
	ExemptionImpuestoLocal        ExemptionDocType = "11"
	ExemptionOtros                ExemptionDocType = "99"
)

// InstitutionCode identifies the institution that authorized an exemption.
type InstitutionCode string

const (
	InstMinisterioHacienda InstitutionCode = "01"
	InstTSE                InstitutionCode = "02"
	InstContraloria        InstitutionCode = "03"
	InstICT                InstitutionCode = "04"
	InstCNE                InstitutionCode = "05"
	InstInder              InstitutionCode = "06"
	InstSenasa             InstitutionCode = "07"
	InstSernac             InstitutionCode = "08"
	InstJudesur            InstitutionCode = "09"
	InstOtrosOrganos       InstitutionCode = "10"
	InstRegimenDiplomatico InstitutionCode = "11"
	InstZonaFranca         InstitutionCode = "12"
	InstOtros              InstitutionCode = "99"
)

// ReferenceType is the catalog of referenced document kinds.
type ReferenceType string

const (
	RefFacturaElectronica ReferenceType = "01"
	RefNotaDebito         ReferenceType = "02"
	RefNotaCredito        ReferenceType = "03"
	RefTiquete            ReferenceType = "04"
	RefNotaDespacho       ReferenceType = "05"
	RefContrato           ReferenceType = "06"
	RefProcedimiento      ReferenceType = "07"
	RefContingencia       ReferenceType = "08"
	RefDevolucion         ReferenceType = "09"
	RefRechazadoHacienda  ReferenceType = "10"
	RefOtros              ReferenceType = "99"
)

// ReferenceCode is the catalog of reasons for referencing a prior document.
type ReferenceCode string

const (
	RefCodeAnula            ReferenceCode = "01"
	RefCodeCorrigeTexto     ReferenceCode = "02"
	RefCodeReferencia       ReferenceCode = "04"
	RefCodeSustituye        ReferenceCode = "05"
	RefCodeDevolucion       ReferenceCode = "06"
	RefCodeSustituyeVoucher ReferenceCode = "07"
	RefCodeOtros            ReferenceCode = "99"
)

// CreditNoteReferenceable reports whether a credit note may reference the
// given document kind: invoices ("01"), tickets ("04") and export invoices ("05").
func CreditNoteReferenceable(t ReferenceType) bool {
	switch t {
	case "01", "04", "05":
		return true
	default:
		return false
	}
}
