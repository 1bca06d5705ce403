package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/facturacr/facturacr/internal/hacienda"
)

// CreateRequest is a document-creation payload that already passed field-level
// schema validation at the API boundary. Business rules are enforced by the
// engine before any allocation happens.
type CreateRequest struct {
	DocType hacienda.DocumentType `json:"doc_type"`

	// Branch and Terminal override the tenant defaults when set.
	Branch   string `json:"branch,omitempty"`
	Terminal string `json:"terminal,omitempty"`

	SaleCondition  hacienda.SaleCondition `json:"sale_condition"`
	SaleOther      *string                `json:"sale_condition_other,omitempty"`
	CreditTermDays *int                   `json:"credit_term_days,omitempty"`
	PaymentMethod  hacienda.PaymentMethod `json:"payment_method"`
	PaymentOther   *string                `json:"payment_method_other,omitempty"`

	CurrencyCode string          `json:"currency_code"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`

	Receptor *ReceptorInput `json:"receptor,omitempty"`

	Lines        []LineInput        `json:"lines"`
	OtherCharges []OtherChargeInput `json:"other_charges,omitempty"`
	References   []ReferenceInput   `json:"references,omitempty"`

	Notes    *string        `json:"notes,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type ReceptorInput struct {
	Name           string  `json:"name"`
	Identification string  `json:"identification"`
	Email          *string `json:"email,omitempty"`
}

type LineInput struct {
	CabysCode   string          `json:"cabys_code"`
	Description string          `json:"description"`
	Unit        string          `json:"unit_of_measure"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`

	Discount *DiscountInput `json:"discount,omitempty"`
	Taxes    []TaxInput     `json:"taxes"`
}

type DiscountInput struct {
	Code      hacienda.DiscountType `json:"code"`
	CodeOther *string               `json:"code_other,omitempty"`
	Nature    *string               `json:"nature,omitempty"`
	Percent   *decimal.Decimal      `json:"percent,omitempty"`
	Amount    *decimal.Decimal      `json:"amount,omitempty"`
}

type TaxInput struct {
	Code      hacienda.TaxCode    `json:"code"`
	CodeOther *string             `json:"code_other,omitempty"`
	Tariff    *hacienda.IVATariff `json:"tariff,omitempty"`

	// Rate applies to percentage taxes without a tariff code; UnitTax to
	// per-unit taxes.
	Rate    *decimal.Decimal `json:"rate,omitempty"`
	UnitTax *decimal.Decimal `json:"unit_tax,omitempty"`
	Factor  *decimal.Decimal `json:"factor,omitempty"`

	Exemption *ExemptionInput `json:"exemption,omitempty"`
}

type ExemptionInput struct {
	DocType          hacienda.ExemptionDocType `json:"doc_type"`
	DocTypeOther     *string                   `json:"doc_type_other,omitempty"`
	DocumentNumber   string                    `json:"document_number"`
	Institution      hacienda.InstitutionCode  `json:"institution"`
	InstitutionOther *string                   `json:"institution_other,omitempty"`
	IssuedAt         time.Time                 `json:"issued_at"`
	ExemptedRate     decimal.Decimal           `json:"exempted_rate"`
}

type OtherChargeInput struct {
	ChargeType     hacienda.OtherChargeType `json:"charge_type"`
	TypeOther      *string                  `json:"charge_type_other,omitempty"`
	Detail         string                   `json:"detail"`
	ThirdPartyID   *string                  `json:"third_party_identification,omitempty"`
	ThirdPartyName *string                  `json:"third_party_name,omitempty"`
	Percent        *decimal.Decimal         `json:"percent,omitempty"`
	Amount         *decimal.Decimal         `json:"amount,omitempty"`
}

type ReferenceInput struct {
	RefType   hacienda.ReferenceType `json:"ref_type"`
	RefCode   hacienda.ReferenceCode `json:"ref_code"`
	RefClave  *string                `json:"ref_clave,omitempty"`
	RefNumber *string                `json:"ref_number,omitempty"`
	IssuedAt  time.Time              `json:"issued_at"`
	Reason    *string                `json:"reason,omitempty"`
}

// ListRequest filters the document listing. Results are newest-first by id;
// BeforeID is the cursor for the next page.
type ListRequest struct {
	DocType     *hacienda.DocumentType
	Status      *Status
	EmittedFrom *time.Time
	EmittedTo   *time.Time
	BeforeID    *snowflake.ID
	Limit       int
}

// Service creates and exposes finalized documents. Creation hands the result
// to the external XML/signing pipeline; nothing here retries toward Hacienda.
type Service interface {
	Create(ctx context.Context, tenantID int64, req CreateRequest) (*Document, error)
	GetByID(ctx context.Context, tenantID int64, id string) (*Document, error)
	GetByClave(ctx context.Context, clave string) (*Document, error)
	List(ctx context.Context, tenantID int64, req ListRequest) ([]Document, error)
}
