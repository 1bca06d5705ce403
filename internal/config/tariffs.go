package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/facturacr/facturacr/internal/hacienda"
)

// TariffOverridesConfig maps IVA tariff codes to replacement percentage rates.
// Statutory rate changes land here so they roll out without a redeploy.
type TariffOverridesConfig struct {
	Rates map[string]string `mapstructure:"rates"`
}

// WatchTariffOverrides loads the optional tariff override file and keeps it
// applied across edits. No file means the statutory table stands as-is.
func WatchTariffOverrides() error {
	v := viper.New()

	v.SetConfigName("tariffs")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/facturacr/config") // Volume-mounted config
	v.AddConfigPath("/etc/facturacr")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		return nil
	}

	apply := func() error {
		var cfg TariffOverridesConfig
		if err := v.UnmarshalKey("tariffs", &cfg); err != nil {
			return err
		}
		rates, err := parseTariffOverrides(cfg)
		if err != nil {
			return err
		}
		hacienda.SetTariffOverrides(rates)
		return nil
	}

	if err := apply(); err != nil {
		return err
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := apply(); err != nil {
			log.Printf("[tariff-config] invalid override ignored: %v", err)
			return
		}
		log.Printf("[tariff-config] reloaded from %s", e.Name)
	})

	return nil
}

func parseTariffOverrides(cfg TariffOverridesConfig) (map[hacienda.IVATariff]decimal.Decimal, error) {
	rates := make(map[hacienda.IVATariff]decimal.Decimal, len(cfg.Rates))
	for code, raw := range cfg.Rates {
		tariff := hacienda.IVATariff(strings.TrimSpace(code))
		if _, ok := hacienda.TariffRate(tariff); !ok {
			return nil, fmt.Errorf("tariffs.rates: unknown IVA tariff %q", code)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("tariffs.rates[%s]: %w", code, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("tariffs.rates[%s]: rate must be between 0 and 100", code)
		}
		rates[tariff] = rate
	}
	return rates, nil
}
