// Package settings exposes the payment defaults to the services that consume them.
package settings

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stripe-payments/pkg/config"
)

// Provider supplies payment defaults.
type Provider interface {
	DefaultRate() decimal.Decimal
	CancelAtPeriodEnd() bool
	DefaultReturnURL() string
}

type envProvider struct {
	cfg config.SettingsConfig
}

// NewProvider wraps the env-backed settings section.
func NewProvider(cfg config.SettingsConfig) Provider {
	return envProvider{cfg: cfg}
}

func (p envProvider) DefaultRate() decimal.Decimal {
	return p.cfg.DefaultRate()
}

func (p envProvider) CancelAtPeriodEnd() bool {
	return p.cfg.CancelAtPeriodEnd
}

func (p envProvider) DefaultReturnURL() string {
	if url := strings.TrimSpace(p.cfg.DefaultReturnURL); url != "" {
		return url
	}
	return "/"
}

// Static is a fixed Provider, handy for wiring tests.
type Static struct {
	Rate        decimal.Decimal
	CancelAtEnd bool
	ReturnURL   string
}

func (s Static) DefaultRate() decimal.Decimal { return s.Rate }

func (s Static) CancelAtPeriodEnd() bool { return s.CancelAtEnd }

func (s Static) DefaultReturnURL() string {
	if s.ReturnURL == "" {
		return "/"
	}
	return s.ReturnURL
}
