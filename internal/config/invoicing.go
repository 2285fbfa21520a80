package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	MinPaymentTimeout = 10 * time.Second
	MaxPaymentTimeout = 30 * time.Second
)

// InvoicingConfig holds business settings that can change without a restart.
type InvoicingConfig struct {
	InvoicePrefix        string        `mapstructure:"invoicePrefix"`
	DefaultCurrency      string        `mapstructure:"defaultCurrency"`
	DefaultDueDays       int           `mapstructure:"defaultDueDays"`
	PaymentTimeout       time.Duration `mapstructure:"paymentTimeout"`
	SimulatorSuccessRate float64       `mapstructure:"simulatorSuccessRate"`
	PublicRateLimit      int           `mapstructure:"publicRateLimit"`
	PublicRateWindow     time.Duration `mapstructure:"publicRateWindow"`
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		InvoicePrefix:        "INV",
		DefaultCurrency:      "usd",
		DefaultDueDays:       14,
		PaymentTimeout:       20 * time.Second,
		SimulatorSuccessRate: 0.9,
		PublicRateLimit:      30,
		PublicRateWindow:     time.Minute,
	}
}

// PaymentTimeoutOrDefault clamps the gateway timeout into the supported range.
func (c InvoicingConfig) PaymentTimeoutOrDefault() time.Duration {
	switch {
	case c.PaymentTimeout <= 0:
		return DefaultInvoicingConfig().PaymentTimeout
	case c.PaymentTimeout < MinPaymentTimeout:
		return MinPaymentTimeout
	case c.PaymentTimeout > MaxPaymentTimeout:
		return MaxPaymentTimeout
	default:
		return c.PaymentTimeout
	}
}

type InvoicingConfigHolder struct {
	current atomic.Value // holds InvoicingConfig
}

// NewStaticInvoicingConfigHolder returns a holder that never reloads.
func NewStaticInvoicingConfigHolder(cfg InvoicingConfig) *InvoicingConfigHolder {
	holder := &InvoicingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewInvoicingConfigHolder() (*InvoicingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/invoicer/config")
	v.AddConfigPath("/etc/invoicer")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicingConfig()
	v.SetDefault("invoicing.invoicePrefix", defaults.InvoicePrefix)
	v.SetDefault("invoicing.defaultCurrency", defaults.DefaultCurrency)
	v.SetDefault("invoicing.defaultDueDays", defaults.DefaultDueDays)
	v.SetDefault("invoicing.paymentTimeout", defaults.PaymentTimeout)
	v.SetDefault("invoicing.simulatorSuccessRate", defaults.SimulatorSuccessRate)
	v.SetDefault("invoicing.publicRateLimit", defaults.PublicRateLimit)
	v.SetDefault("invoicing.publicRateWindow", defaults.PublicRateWindow)

	configFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		configFound = false
	}

	var cfg InvoicingConfig
	if err := v.UnmarshalKey("invoicing", &cfg); err != nil {
		return nil, err
	}
	if err := validateInvoicingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticInvoicingConfigHolder(cfg)
	if !configFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvoicingConfig
		if err := v.UnmarshalKey("invoicing", &updated); err != nil {
			log.Printf("[invoicing-config] reload failed: %v", err)
			return
		}
		if err := validateInvoicingConfig(updated); err != nil {
			log.Printf("[invoicing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[invoicing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *InvoicingConfigHolder) Get() InvoicingConfig {
	return h.current.Load().(InvoicingConfig)
}

func validateInvoicingConfig(cfg InvoicingConfig) error {
	if strings.TrimSpace(cfg.InvoicePrefix) == "" {
		return errors.New("invoicing.invoicePrefix cannot be empty")
	}
	if len(strings.TrimSpace(cfg.DefaultCurrency)) != 3 {
		return errors.New("invoicing.defaultCurrency must be a 3-letter code")
	}
	if cfg.DefaultDueDays < 0 {
		return errors.New("invoicing.defaultDueDays cannot be negative")
	}
	if cfg.SimulatorSuccessRate < 0 || cfg.SimulatorSuccessRate > 1 {
		return errors.New("invoicing.simulatorSuccessRate must be between 0 and 1")
	}
	if cfg.PublicRateLimit <= 0 {
		return errors.New("invoicing.publicRateLimit must be positive")
	}
	return nil
}
