package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FinancialConfig holds defaults applied to new quotes and invoices.
type FinancialConfig struct {
	DefaultGSTRateBps        int64 `mapstructure:"defaultGstRateBps"`
	QuoteValidityDays        int   `mapstructure:"quoteValidityDays"`
	InvoiceDueDays           int   `mapstructure:"invoiceDueDays"`
	DefaultDepositPercentage int64 `mapstructure:"defaultDepositPercentage"`
}

func DefaultFinancialConfig() FinancialConfig {
	return FinancialConfig{
		DefaultGSTRateBps:        1000,
		QuoteValidityDays:        30,
		InvoiceDueDays:           14,
		DefaultDepositPercentage: 0,
	}
}

type FinancialConfigHolder struct {
	current atomic.Value // holds FinancialConfig
}

func NewFinancialConfigHolder() (*FinancialConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("financial")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/tradieapp/config")
	v.AddConfigPath("/etc/tradieapp")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRADIEAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFinancialConfig()
	v.SetDefault("financial.defaultGstRateBps", defaults.DefaultGSTRateBps)
	v.SetDefault("financial.quoteValidityDays", defaults.QuoteValidityDays)
	v.SetDefault("financial.invoiceDueDays", defaults.InvoiceDueDays)
	v.SetDefault("financial.defaultDepositPercentage", defaults.DefaultDepositPercentage)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg FinancialConfig
	if err := v.UnmarshalKey("financial", &cfg); err != nil {
		return nil, err
	}
	if err := validateFinancialConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticFinancialConfig(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FinancialConfig
		if err := v.UnmarshalKey("financial", &updated); err != nil {
			log.Printf("[financial-config] reload failed: %v", err)
			return
		}
		if err := validateFinancialConfig(updated); err != nil {
			log.Printf("[financial-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[financial-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticFinancialConfig returns a holder that never reloads.
func NewStaticFinancialConfig(cfg FinancialConfig) *FinancialConfigHolder {
	holder := &FinancialConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *FinancialConfigHolder) Get() FinancialConfig {
	if h == nil {
		return DefaultFinancialConfig()
	}
	return h.current.Load().(FinancialConfig)
}

func validateFinancialConfig(cfg FinancialConfig) error {
	if cfg.DefaultGSTRateBps < 0 || cfg.DefaultGSTRateBps > 10000 {
		return errors.New("financial.defaultGstRateBps must be between 0 and 10000")
	}
	if cfg.QuoteValidityDays <= 0 {
		return errors.New("financial.quoteValidityDays must be positive")
	}
	if cfg.InvoiceDueDays < 0 {
		return errors.New("financial.invoiceDueDays cannot be negative")
	}
	if cfg.DefaultDepositPercentage < 0 || cfg.DefaultDepositPercentage > 100 {
		return errors.New("financial.defaultDepositPercentage must be between 0 and 100")
	}
	return nil
}
