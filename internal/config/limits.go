package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LimitsConfig bounds per-tenant request rates and document shape.
type LimitsConfig struct {
	RequestsPerMinute     int `mapstructure:"requestsPerMinute"`
	Burst                 int `mapstructure:"burst"`
	MaxLinesPerDocument   int `mapstructure:"maxLinesPerDocument"`
	MaxReferencesPerDoc   int `mapstructure:"maxReferencesPerDoc"`
	MaxOtherChargesPerDoc int `mapstructure:"maxOtherChargesPerDoc"`
}

func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		RequestsPerMinute:     120,
		Burst:                 30,
		MaxLinesPerDocument:   1000,
		MaxReferencesPerDoc:   10,
		MaxOtherChargesPerDoc: 15,
	}
}

type LimitsHolder struct {
	current atomic.Value // holds LimitsConfig
}

func NewLimitsHolder() (*LimitsHolder, error) {
	v := viper.New()

	v.SetConfigName("limits")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/facturacr/config") // Volume-mounted config
	v.AddConfigPath("/etc/facturacr")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("FACTURACR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultLimitsConfig()
		v.SetDefault("limits.requestsPerMinute", defaults.RequestsPerMinute)
		v.SetDefault("limits.burst", defaults.Burst)
		v.SetDefault("limits.maxLinesPerDocument", defaults.MaxLinesPerDocument)
		v.SetDefault("limits.maxReferencesPerDoc", defaults.MaxReferencesPerDoc)
		v.SetDefault("limits.maxOtherChargesPerDoc", defaults.MaxOtherChargesPerDoc)
	}

	var cfg LimitsConfig
	if err := v.UnmarshalKey("limits", &cfg); err != nil {
		return nil, err
	}
	if err := validateLimitsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &LimitsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LimitsConfig
		if err := v.UnmarshalKey("limits", &updated); err != nil {
			log.Printf("[limits-config] reload failed: %v", err)
			return
		}
		if err := validateLimitsConfig(updated); err != nil {
			log.Printf("[limits-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[limits-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Get returns the active limits. A nil holder falls back to the defaults so
// handlers stay usable in tests that skip config wiring.
func (h *LimitsHolder) Get() LimitsConfig {
	if h == nil {
		return DefaultLimitsConfig()
	}
	return h.current.Load().(LimitsConfig)
}

// StaticLimitsHolder returns a holder pinned to cfg, with no file watching.
func StaticLimitsHolder(cfg LimitsConfig) *LimitsHolder {
	h := &LimitsHolder{}
	h.current.Store(cfg)
	return h
}

func validateLimitsConfig(cfg LimitsConfig) error {
	if cfg.RequestsPerMinute <= 0 {
		return errors.New("limits.requestsPerMinute must be positive")
	}
	if cfg.Burst <= 0 {
		return errors.New("limits.burst must be positive")
	}
	if cfg.MaxLinesPerDocument <= 0 {
		return errors.New("limits.maxLinesPerDocument must be positive")
	}
	return nil
}
