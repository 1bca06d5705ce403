package hacienda

import (
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// tariffOverrides carries operator-supplied rate replacements, swapped as a
// whole map so readers never observe a partial update.
var tariffOverrides atomic.Value // holds map[IVATariff]decimal.Decimal

// SetTariffOverrides replaces the active override set. An override changes the
// rate of an existing tariff code; it cannot introduce new codes, because the
// statutory table stays the authority on which codes exist.
func SetTariffOverrides(rates map[IVATariff]decimal.Decimal) {
	copied := make(map[IVATariff]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[code] = rate
	}
	tariffOverrides.Store(copied)
}

func overrideRate(t IVATariff) (decimal.Decimal, bool) {
	rates, _ := tariffOverrides.Load().(map[IVATariff]decimal.Decimal)
	rate, ok := rates[t]
	return rate, ok
}
