package calc

import (
	"github.com/shopspring/decimal"

	documentdomain "github.com/facturacr/facturacr/internal/document/domain"
)

// TotalsPrecision is the fractional precision mandated for persisted totals.
const TotalsPrecision = 5

// Totals are the document-level aggregates, each rounded to TotalsPrecision.
type Totals struct {
	NetTotal         decimal.Decimal
	TaxTotal         decimal.Decimal
	ExemptTotal      decimal.Decimal
	DiscountTotal    decimal.Decimal
	OtherChargeTotal decimal.Decimal
	GrandTotal       decimal.Decimal

	// ChargeAmounts holds the resolved amount per other charge, index-aligned
	// with the input, so percentage charges persist their computed value.
	ChargeAmounts []decimal.Decimal
}

// Aggregate folds line results and document-level other charges into totals.
// Intermediates stay at full precision; rounding happens exactly once, here,
// never per line — a document with thousands of lines must not accumulate
// rounding error. The function is pure: identical inputs yield identical
// totals.
func Aggregate(lines []LineResult, charges []documentdomain.OtherChargeInput) Totals {
	net := decimal.Zero
	tax := decimal.Zero
	exempt := decimal.Zero
	discount := decimal.Zero

	for _, line := range lines {
		net = net.Add(line.NetAmount)
		tax = tax.Add(line.TaxTotal)
		exempt = exempt.Add(line.ExemptTotal)
		discount = discount.Add(line.DiscountAmount)
	}

	chargeTotal := decimal.Zero
	chargeAmounts := make([]decimal.Decimal, 0, len(charges))
	for _, charge := range charges {
		amount := decimal.Zero
		switch {
		case charge.Percent != nil:
			amount = net.Mul(*charge.Percent).Div(oneHundred)
		case charge.Amount != nil:
			amount = *charge.Amount
		}
		chargeAmounts = append(chargeAmounts, amount)
		chargeTotal = chargeTotal.Add(amount)
	}

	// The grand total sums the already-rounded components so the persisted
	// reconciliation identity holds exactly, not merely within half an ulp.
	netR := net.Round(TotalsPrecision)
	taxR := tax.Round(TotalsPrecision)
	chargeR := chargeTotal.Round(TotalsPrecision)

	return Totals{
		NetTotal:         netR,
		TaxTotal:         taxR,
		ExemptTotal:      exempt.Round(TotalsPrecision),
		DiscountTotal:    discount.Round(TotalsPrecision),
		OtherChargeTotal: chargeR,
		GrandTotal:       netR.Add(taxR).Add(chargeR),
		ChargeAmounts:    chargeAmounts,
	}
}

// Reconcile verifies the aggregate invariant: the grand total must equal
// net + tax + other charges (tax already net of exemptions) to
// TotalsPrecision. A failure is a programming or data-integrity bug and is
// surfaced with every intermediate value.
func Reconcile(t Totals) error {
	expected := t.NetTotal.Add(t.TaxTotal).Add(t.OtherChargeTotal).Round(TotalsPrecision)
	if t.GrandTotal.Equal(expected) {
		return nil
	}
	return &documentdomain.InconsistencyError{
		NetTotal:         t.NetTotal,
		TaxTotal:         t.TaxTotal,
		ExemptTotal:      t.ExemptTotal,
		DiscountTotal:    t.DiscountTotal,
		OtherChargeTotal: t.OtherChargeTotal,
		GrandTotal:       t.GrandTotal,
		Expected:         expected,
	}
}
