package hacienda

import "github.com/shopspring/decimal"

// RuleKind says where a tax amount comes from.
type RuleKind string

const (
	// RuleKindPercent taxes apply a rate to the line's net base.
	RuleKindPercent RuleKind = "percent"
	// RuleKindPerUnit taxes apply a fixed amount per billed unit,
	// independent of price (fuel, alcohol, tobacco, beverages, cement).
	RuleKindPerUnit RuleKind = "per_unit"
)

// TaxRule describes the computation behavior of one tax code.
type TaxRule struct {
	Code TaxCode
	Kind RuleKind

	// RateFromTariff means the percentage comes from an IVA tariff code
	// rather than an explicit rate on the tax line.
	RateFromTariff bool

	// AllowsFactor marks the used-goods regime, where the computed IVA is
	// scaled by a configured proportional factor.
	AllowsFactor bool

	// AllowsExemption marks taxes that may carry exemption records.
	AllowsExemption bool
}

// taxRules is the closed dispatch table for every tax code in the catalog.
// Calculation branches on this table, never on ad hoc conditionals, so the
// behavior per code stays exhaustive and testable.
var taxRules = map[TaxCode]TaxRule{
	TaxIVA:                {Code: TaxIVA, Kind: RuleKindPercent, RateFromTariff: true, AllowsExemption: true},
	TaxSelectivoConsumo:   {Code: TaxSelectivoConsumo, Kind: RuleKindPercent},
	TaxUnicoCombustibles:  {Code: TaxUnicoCombustibles, Kind: RuleKindPerUnit},
	TaxBebidasAlcoholicas: {Code: TaxBebidasAlcoholicas, Kind: RuleKindPerUnit},
	TaxBebidasSinAlcohol:  {Code: TaxBebidasSinAlcohol, Kind: RuleKindPerUnit},
	TaxProductosTabaco:    {Code: TaxProductosTabaco, Kind: RuleKindPerUnit},
	TaxIVACalculoEspecial: {Code: TaxIVACalculoEspecial, Kind: RuleKindPercent, AllowsExemption: true},
	TaxIVABienesUsados:    {Code: TaxIVABienesUsados, Kind: RuleKindPercent, RateFromTariff: true, AllowsFactor: true},
	TaxCemento:            {Code: TaxCemento, Kind: RuleKindPerUnit},
	TaxOtros:              {Code: TaxOtros, Kind: RuleKindPercent},
}

// RuleFor returns the rule for a tax code. Unknown codes are rejected by the
// caller; there is no default behavior.
func RuleFor(code TaxCode) (TaxRule, bool) {
	rule, ok := taxRules[code]
	return rule, ok
}

// tariffRates maps IVA tariff codes to statutory percentage rates.
var tariffRates = map[IVATariff]decimal.Decimal{
	TariffExento:         decimal.Zero,
	TariffReducida1:      decimal.NewFromInt(1),
	TariffReducida2:      decimal.NewFromInt(2),
	TariffReducida4:      decimal.NewFromInt(4),
	TariffTransitorio0:   decimal.Zero,
	TariffTransitorio4:   decimal.NewFromInt(4),
	TariffTransitorio8:   decimal.NewFromInt(8),
	TariffGeneral13:      decimal.NewFromInt(13),
	TariffReducida05:     decimal.RequireFromString("0.5"),
	TariffExenta:         decimal.Zero,
	TariffCeroSinCredito: decimal.Zero,
}

// TariffRate returns the rate (as a percentage) for an IVA tariff code.
// Operator overrides take precedence over the statutory table; a code absent
// from the statutory table does not exist, overridden or not.
func TariffRate(t IVATariff) (decimal.Decimal, bool) {
	statutory, ok := tariffRates[t]
	if !ok {
		return decimal.Decimal{}, false
	}
	if rate, ok := overrideRate(t); ok {
		return rate, true
	}
	return statutory, true
}
