package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("document_not_found")
	ErrInvalidTenant = errors.New("invalid_tenant")
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors is the business-rule rejection: the document never reached
// allocation and no side effects occurred.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("document validation failed with %d error(s)", len(v.Errors))
}

// Add appends one violation.
func (v *ValidationErrors) Add(field, code, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Code: code, Message: message})
}

// OrNil returns the collected errors, or nil when everything passed.
func (v *ValidationErrors) OrNil() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// InconsistencyError reports that the aggregated totals failed to reconcile.
// It is a programming or data-integrity bug, never retryable, and carries the
// full intermediate values for diagnosis.
type InconsistencyError struct {
	NetTotal         decimal.Decimal
	TaxTotal         decimal.Decimal
	ExemptTotal      decimal.Decimal
	DiscountTotal    decimal.Decimal
	OtherChargeTotal decimal.Decimal
	GrandTotal       decimal.Decimal
	Expected         decimal.Decimal
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf(
		"document totals do not reconcile: grand=%s expected=%s (net=%s tax=%s exempt=%s discount=%s charges=%s)",
		e.GrandTotal, e.Expected, e.NetTotal, e.TaxTotal, e.ExemptTotal, e.DiscountTotal, e.OtherChargeTotal,
	)
}
