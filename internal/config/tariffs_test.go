package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacr/facturacr/internal/hacienda"
)

func TestParseTariffOverrides(t *testing.T) {
	rates, err := parseTariffOverrides(TariffOverridesConfig{
		Rates: map[string]string{"08": "14", "03": " 2.5 "},
	})
	require.NoError(t, err)
	assert.True(t, rates[hacienda.TariffGeneral13].Equal(decimal.NewFromInt(14)))
	assert.True(t, rates[hacienda.TariffReducida2].Equal(decimal.RequireFromString("2.5")))
}

func TestParseTariffOverridesRejectsUnknownCode(t *testing.T) {
	_, err := parseTariffOverrides(TariffOverridesConfig{
		Rates: map[string]string{"90": "5"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown IVA tariff")
}

func TestParseTariffOverridesRejectsBadRates(t *testing.T) {
	for name, raw := range map[string]string{
		"not a number": "catorce",
		"negative":     "-1",
		"over 100":     "101",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseTariffOverrides(TariffOverridesConfig{
				Rates: map[string]string{"08": raw},
			})
			assert.Error(t, err)
		})
	}
}
