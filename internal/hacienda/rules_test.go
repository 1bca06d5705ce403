package hacienda

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleForCoversEveryCatalogCode(t *testing.T) {
	codes := []TaxCode{
		TaxIVA, TaxSelectivoConsumo, TaxUnicoCombustibles, TaxBebidasAlcoholicas,
		TaxBebidasSinAlcohol, TaxProductosTabaco, TaxIVACalculoEspecial,
		TaxIVABienesUsados, TaxCemento, TaxOtros,
	}
	for _, code := range codes {
		rule, ok := RuleFor(code)
		require.True(t, ok, "missing rule for tax code %s", code)
		assert.Equal(t, code, rule.Code)
	}
}

func TestRuleForRejectsUnknownCode(t *testing.T) {
	_, ok := RuleFor(TaxCode("42"))
	assert.False(t, ok)
}

func TestUnitTaxesArePriceIndependent(t *testing.T) {
	for _, code := range []TaxCode{TaxUnicoCombustibles, TaxBebidasAlcoholicas, TaxBebidasSinAlcohol, TaxProductosTabaco, TaxCemento} {
		rule, ok := RuleFor(code)
		require.True(t, ok)
		assert.Equal(t, RuleKindPerUnit, rule.Kind, "tax %s", code)
		assert.False(t, rule.RateFromTariff, "tax %s", code)
	}
}

func TestUsedGoodsRegime(t *testing.T) {
	rule, ok := RuleFor(TaxIVABienesUsados)
	require.True(t, ok)
	assert.True(t, rule.AllowsFactor)
	assert.True(t, rule.RateFromTariff)
}

func TestTariffRates(t *testing.T) {
	cases := map[IVATariff]string{
		TariffExento:         "0",
		TariffReducida1:      "1",
		TariffReducida2:      "2",
		TariffReducida4:      "4",
		TariffTransitorio0:   "0",
		TariffTransitorio4:   "4",
		TariffTransitorio8:   "8",
		TariffGeneral13:      "13",
		TariffReducida05:     "0.5",
		TariffExenta:         "0",
		TariffCeroSinCredito: "0",
	}
	for tariff, want := range cases {
		rate, ok := TariffRate(tariff)
		require.True(t, ok, "tariff %s", tariff)
		assert.True(t, rate.Equal(decimal.RequireFromString(want)), "tariff %s: got %s", tariff, rate)
	}

	_, ok := TariffRate(IVATariff("90"))
	assert.False(t, ok)
}

func TestTariffRateOverrides(t *testing.T) {
	t.Cleanup(func() { SetTariffOverrides(nil) })

	SetTariffOverrides(map[IVATariff]decimal.Decimal{
		TariffGeneral13: decimal.NewFromInt(14),
	})

	rate, ok := TariffRate(TariffGeneral13)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(14)), "got %s", rate)

	// Codes without an override keep the statutory rate.
	rate, ok = TariffRate(TariffReducida05)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.5")))

	// An override never brings a nonexistent code into existence.
	SetTariffOverrides(map[IVATariff]decimal.Decimal{
		IVATariff("90"): decimal.NewFromInt(5),
	})
	_, ok = TariffRate(IVATariff("90"))
	assert.False(t, ok)

	SetTariffOverrides(nil)
	rate, ok = TariffRate(TariffGeneral13)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(13)))
}

func TestDocumentTypeHelpers(t *testing.T) {
	assert.True(t, DocTypeFacturaElectronica.RequiresReceptor())
	assert.False(t, DocTypeTiquete.RequiresReceptor())
	assert.True(t, DocTypeNotaCredito.RequiresReferences())
	assert.True(t, DocTypeReciboPago.RequiresReferences())
	assert.False(t, DocTypeFacturaElectronica.RequiresReferences())
	assert.False(t, DocumentType("09").Valid())
}
