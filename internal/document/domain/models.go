// Package domain contains persistence models for electronic documents.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/facturacr/facturacr/internal/hacienda"
)

// Status represents the document processing lifecycle. The engine only ever
// produces BORRADOR; the submission pipeline owns the rest.
type Status string

const (
	StatusBorrador   Status = "BORRADOR"
	StatusPendiente  Status = "PENDIENTE"
	StatusEnviado    Status = "ENVIADO"
	StatusProcesando Status = "PROCESANDO"
	StatusAceptado   Status = "ACEPTADO"
	StatusRechazado  Status = "RECHAZADO"
	StatusError      Status = "ERROR"
	StatusCancelado  Status = "CANCELADO"
)

// Document is the finalized electronic document header. Clave and Consecutivo
// are assigned exactly once at creation and never change afterwards.
type Document struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	TenantID snowflake.ID `gorm:"column:tenant_id;not null;index;uniqueIndex:ux_documents_tenant_consecutivo"`

	DocType     hacienda.DocumentType `gorm:"column:doc_type;type:text;not null;index"`
	Clave       string                `gorm:"type:char(50);not null;uniqueIndex:ux_documents_clave"`
	Consecutivo string                `gorm:"type:char(20);not null;uniqueIndex:ux_documents_tenant_consecutivo"`
	Status      Status                `gorm:"type:text;not null;default:'BORRADOR'"`
	EmittedAt   time.Time             `gorm:"column:emitted_at;not null"`

	SaleCondition  hacienda.SaleCondition `gorm:"column:sale_condition;type:text;not null"`
	SaleOther      *string                `gorm:"column:sale_condition_other;type:text"`
	CreditTermDays *int                   `gorm:"column:credit_term_days"`
	PaymentMethod  hacienda.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentOther   *string                `gorm:"column:payment_method_other;type:text"`

	CurrencyCode string          `gorm:"column:currency_code;type:char(3);not null;default:'CRC'"`
	ExchangeRate decimal.Decimal `gorm:"column:exchange_rate;type:numeric(18,5);not null;default:1"`

	ReceptorName           *string `gorm:"column:receptor_name;type:text"`
	ReceptorIdentification *string `gorm:"column:receptor_identification;type:text"`
	ReceptorEmail          *string `gorm:"column:receptor_email;type:text"`

	NetTotal         decimal.Decimal `gorm:"column:net_total;type:numeric(18,5);not null"`
	TaxTotal         decimal.Decimal `gorm:"column:tax_total;type:numeric(18,5);not null"`
	ExemptTotal      decimal.Decimal `gorm:"column:exempt_total;type:numeric(18,5);not null"`
	DiscountTotal    decimal.Decimal `gorm:"column:discount_total;type:numeric(18,5);not null"`
	OtherChargeTotal decimal.Decimal `gorm:"column:other_charge_total;type:numeric(18,5);not null"`
	GrandTotal       decimal.Decimal `gorm:"column:grand_total;type:numeric(18,5);not null"`

	// IntegrityHash is sha256(clave + grand total + emission time), consumed by
	// the signing pipeline to detect drift between persistence and submission.
	IntegrityHash string `gorm:"column:integrity_hash;type:char(64);not null"`

	Notes    *string           `gorm:"type:text"`
	Metadata datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`

	Lines        []Line        `gorm:"foreignKey:DocumentID"`
	OtherCharges []OtherCharge `gorm:"foreignKey:DocumentID"`
	References   []Reference   `gorm:"foreignKey:DocumentID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Document) TableName() string { return "documents" }

// Line is one billed item of a document.
type Line struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	DocumentID snowflake.ID `gorm:"column:document_id;not null;index"`

	LineNumber  int    `gorm:"column:line_number;not null"`
	CabysCode   string `gorm:"column:cabys_code;type:char(13);not null"`
	Description string `gorm:"type:text;not null"`
	Unit        string `gorm:"column:unit_of_measure;type:text;not null;default:'Unid'"`

	Quantity  decimal.Decimal `gorm:"type:numeric(18,5);not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(18,5);not null"`
	NetAmount decimal.Decimal `gorm:"column:net_amount;type:numeric(18,5);not null"`

	Discount *Discount `gorm:"foreignKey:LineID"`
	Taxes    []TaxLine `gorm:"foreignKey:LineID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Line) TableName() string { return "document_lines" }

// TaxLine is one tax applied to a line item.
type TaxLine struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	LineID snowflake.ID `gorm:"column:line_id;not null;index"`

	TaxCode      hacienda.TaxCode    `gorm:"column:tax_code;type:text;not null"`
	TaxCodeOther *string             `gorm:"column:tax_code_other;type:text"`
	Tariff       *hacienda.IVATariff `gorm:"column:tariff_code;type:text"`

	// Rate is the applied percentage for percentage taxes; UnitTax the
	// per-unit amount for unit taxes. Exactly one is meaningful per rule kind.
	Rate    decimal.Decimal  `gorm:"type:numeric(6,2);not null;default:0"`
	UnitTax decimal.Decimal  `gorm:"column:unit_tax;type:numeric(18,5);not null;default:0"`
	Factor  *decimal.Decimal `gorm:"type:numeric(6,4)"`

	Amount decimal.Decimal `gorm:"type:numeric(18,5);not null"`

	Exemption *Exemption `gorm:"foreignKey:TaxLineID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxLine) TableName() string { return "document_tax_lines" }

// Exemption is a documented authorization reducing a tax line's amount.
// Audit fields are preserved verbatim; the engine does not verify them against
// the authorizing institution.
type Exemption struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TaxLineID snowflake.ID `gorm:"column:tax_line_id;not null;index"`

	DocType          hacienda.ExemptionDocType `gorm:"column:doc_type;type:text;not null"`
	DocTypeOther     *string                   `gorm:"column:doc_type_other;type:text"`
	DocumentNumber   string                    `gorm:"column:document_number;type:varchar(40);not null"`
	Institution      hacienda.InstitutionCode  `gorm:"column:institution;type:text;not null"`
	InstitutionOther *string                   `gorm:"column:institution_other;type:text"`
	IssuedAt         time.Time                 `gorm:"column:issued_at;not null"`

	// ExemptedRate is the portion of the statutory rate forgiven; the
	// remainder is still collected.
	ExemptedRate decimal.Decimal `gorm:"column:exempted_rate;type:numeric(6,2);not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(18,5);not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Exemption) TableName() string { return "document_exemptions" }

// Discount reduces a line's net base before tax.
type Discount struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	LineID snowflake.ID `gorm:"column:line_id;not null;uniqueIndex"`

	Code      hacienda.DiscountType `gorm:"column:code;type:text;not null"`
	CodeOther *string               `gorm:"column:code_other;type:text"`
	Nature    *string               `gorm:"type:text"`

	// Percentage-of-gross when Percent is set, otherwise the flat Amount.
	Percent *decimal.Decimal `gorm:"type:numeric(9,5)"`
	Amount  decimal.Decimal  `gorm:"type:numeric(18,5);not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Discount) TableName() string { return "document_discounts" }

// OtherCharge is a document-level surcharge, flat or percentage-of-subtotal.
type OtherCharge struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	DocumentID snowflake.ID `gorm:"column:document_id;not null;index"`

	ChargeType hacienda.OtherChargeType `gorm:"column:charge_type;type:text;not null"`
	TypeOther  *string                  `gorm:"column:charge_type_other;type:text"`
	Detail     string                   `gorm:"type:varchar(160);not null"`

	ThirdPartyID   *string `gorm:"column:third_party_identification;type:text"`
	ThirdPartyName *string `gorm:"column:third_party_name;type:text"`

	Percent *decimal.Decimal `gorm:"type:numeric(9,5)"`
	Amount  decimal.Decimal  `gorm:"type:numeric(18,5);not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OtherCharge) TableName() string { return "document_other_charges" }

// Reference links a document to a prior one (notes, receipts, substitutions).
type Reference struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	DocumentID snowflake.ID `gorm:"column:document_id;not null;index"`

	RefType   hacienda.ReferenceType `gorm:"column:ref_type;type:text;not null"`
	RefCode   hacienda.ReferenceCode `gorm:"column:ref_code;type:text;not null"`
	RefClave  *string                `gorm:"column:ref_clave;type:char(50)"`
	RefNumber *string                `gorm:"column:ref_number;type:char(20)"`
	IssuedAt  time.Time              `gorm:"column:issued_at;not null"`
	Reason    *string                `gorm:"type:varchar(180)"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Reference) TableName() string { return "document_references" }
