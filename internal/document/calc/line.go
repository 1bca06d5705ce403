// Package calc implements the pure tax computation for document lines and
// totals. Nothing here touches storage or mutable state; everything is
// decimal arithmetic at full precision, rounded exactly once at the end.
package calc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	documentdomain "github.com/facturacr/facturacr/internal/document/domain"
	"github.com/facturacr/facturacr/internal/hacienda"
)

var (
	ErrUnknownTaxCode  = errors.New("unknown_tax_code")
	ErrUnknownTariff   = errors.New("unknown_tariff_code")
	ErrMissingRate     = errors.New("missing_tax_rate")
	ErrMissingUnitTax  = errors.New("missing_unit_tax")
	ErrNegativeBase    = errors.New("negative_net_base")
	ErrExemptionDenied = errors.New("exemption_not_allowed")
)

var oneHundred = decimal.NewFromInt(100)

// TaxResult is the computed outcome of one tax line.
type TaxResult struct {
	Code   hacienda.TaxCode
	Tariff *hacienda.IVATariff

	// Rate is the applied percentage (zero for per-unit taxes); UnitTax the
	// per-unit amount (zero for percentage taxes).
	Rate    decimal.Decimal
	UnitTax decimal.Decimal
	Factor  *decimal.Decimal

	// Amount is the tax before exemption; ExemptAmount the forgiven portion.
	// The collected tax is Amount minus ExemptAmount.
	Amount       decimal.Decimal
	ExemptAmount decimal.Decimal
	ExemptedRate decimal.Decimal
}

// Collected returns the tax actually due after the exemption reduction.
func (r TaxResult) Collected() decimal.Decimal {
	return r.Amount.Sub(r.ExemptAmount)
}

// LineResult carries one line's computed amounts at full precision.
type LineResult struct {
	Gross          decimal.Decimal
	DiscountAmount decimal.Decimal
	NetAmount      decimal.Decimal
	Taxes          []TaxResult

	// TaxTotal is net of exemptions; ExemptTotal the sum of reductions.
	TaxTotal    decimal.Decimal
	ExemptTotal decimal.Decimal
}

// ComputeLine computes one line's net base, per-tax amounts and exemption
// reductions. A line with no taxes yields a zero TaxTotal; whether that is
// legal for the transaction type is the validator's concern, not ours — no
// default tax is ever assumed.
func ComputeLine(in documentdomain.LineInput) (LineResult, error) {
	gross := in.Quantity.Mul(in.UnitPrice)

	discount, err := discountAmount(in.Discount, gross)
	if err != nil {
		return LineResult{}, err
	}

	net := gross.Sub(discount)
	if net.IsNegative() {
		return LineResult{}, fmt.Errorf("%w: discount %s exceeds gross %s", ErrNegativeBase, discount, gross)
	}

	result := LineResult{
		Gross:          gross,
		DiscountAmount: discount,
		NetAmount:      net,
		TaxTotal:       decimal.Zero,
		ExemptTotal:    decimal.Zero,
	}

	for i, tax := range in.Taxes {
		computed, err := computeTax(tax, net, in.Quantity)
		if err != nil {
			return LineResult{}, fmt.Errorf("tax %d: %w", i+1, err)
		}
		result.Taxes = append(result.Taxes, computed)
		result.TaxTotal = result.TaxTotal.Add(computed.Collected())
		result.ExemptTotal = result.ExemptTotal.Add(computed.ExemptAmount)
	}

	return result, nil
}

func discountAmount(d *documentdomain.DiscountInput, gross decimal.Decimal) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, nil
	}
	if d.Percent != nil {
		return gross.Mul(*d.Percent).Div(oneHundred), nil
	}
	if d.Amount != nil {
		return *d.Amount, nil
	}
	return decimal.Zero, nil
}

func computeTax(in documentdomain.TaxInput, netBase, quantity decimal.Decimal) (TaxResult, error) {
	rule, ok := hacienda.RuleFor(in.Code)
	if !ok {
		return TaxResult{}, fmt.Errorf("%w: %s", ErrUnknownTaxCode, in.Code)
	}

	out := TaxResult{Code: in.Code, Tariff: in.Tariff, Factor: in.Factor}

	switch rule.Kind {
	case hacienda.RuleKindPerUnit:
		if in.UnitTax == nil {
			return TaxResult{}, fmt.Errorf("%w: tax code %s is unit-based", ErrMissingUnitTax, in.Code)
		}
		out.UnitTax = *in.UnitTax
		out.Amount = quantity.Mul(*in.UnitTax)

	case hacienda.RuleKindPercent:
		rate, err := resolveRate(rule, in)
		if err != nil {
			return TaxResult{}, err
		}
		out.Rate = rate
		out.Amount = netBase.Mul(rate).Div(oneHundred)
		if rule.AllowsFactor && in.Factor != nil {
			out.Amount = out.Amount.Mul(*in.Factor)
		}
	}

	if in.Exemption != nil {
		if !rule.AllowsExemption {
			return TaxResult{}, fmt.Errorf("%w: tax code %s", ErrExemptionDenied, in.Code)
		}
		// The forgiven portion is the exempted rate applied to the same base,
		// capped at the computed tax so the reduction can never overshoot.
		exemptedRate := decimal.Min(in.Exemption.ExemptedRate, out.Rate)
		out.ExemptedRate = exemptedRate
		out.ExemptAmount = decimal.Min(netBase.Mul(exemptedRate).Div(oneHundred), out.Amount)
	}

	return out, nil
}

func resolveRate(rule hacienda.TaxRule, in documentdomain.TaxInput) (decimal.Decimal, error) {
	if rule.RateFromTariff && in.Tariff != nil {
		rate, ok := hacienda.TariffRate(*in.Tariff)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownTariff, *in.Tariff)
		}
		return rate, nil
	}
	if in.Rate == nil {
		return decimal.Zero, fmt.Errorf("%w: tax code %s", ErrMissingRate, rule.Code)
	}
	return *in.Rate, nil
}
