// Package config loads and validates the structured configuration
// document from spec.md §6: per-venue exchange credentials and rate
// limits, strategy thresholds, risk limits, the monitoring server
// address, operator alert credentials, and the unified symbol map.
package config

import (
	"fmt"
	"time"

	"github.com/xrparb/core/internal/domain"
)

// ExchangeConfig is one venue's connection and credential block.
type ExchangeConfig struct {
	WSURL              string  `yaml:"ws_url"`
	RESTURL            string  `yaml:"rest_url"`
	APIKey             string  `yaml:"api_key"`
	APISecret          string  `yaml:"api_secret"`
	OrderRPS           float64 `yaml:"order_rps"`
	OrderBurst         int     `yaml:"order_burst"`
	QueryRPS           float64 `yaml:"query_rps"`
	QueryBurst         int     `yaml:"query_burst"`
	Enabled            bool    `yaml:"enabled"`
}

// StrategyConfig sets the premium thresholds and order sizing bounds
// the decision engine gates on.
type StrategyConfig struct {
	MinEntryPremiumPercent float64       `yaml:"min_entry_premium_percent"`
	MaxEntryPremiumPercent float64       `yaml:"max_entry_premium_percent"`
	StopLossPercent        float64       `yaml:"stop_loss_percent"`
	MinOrderQuantity       float64       `yaml:"min_order_quantity"`
	MaxOrderQuantity       float64       `yaml:"max_order_quantity"`
	SlippageCapPercent     float64       `yaml:"slippage_cap_percent"`
	OrderTimeout           time.Duration `yaml:"order_timeout"`
}

// RiskConfig bounds the blast radius of any single trading session.
type RiskConfig struct {
	DailyLossLimitKRW   float64 `yaml:"daily_loss_limit_krw"`
	MaxTransferAmount   float64 `yaml:"max_transfer_amount"`
	MaxConcurrentOrders int     `yaml:"max_concurrent_orders"`
	KillSwitch          bool    `yaml:"kill_switch"`
}

// ServerConfig is the monitoring publisher's target and the optional
// ambient health-check surface's bind address.
type ServerConfig struct {
	MonitorAddr string `yaml:"monitor_addr"`
	HealthAddr  string `yaml:"health_addr"`
}

// AlertConfig holds the operator notification channel's credentials.
// The channel itself (Telegram/Discord) is an external collaborator;
// this only carries what the core needs to address a message to it.
type AlertConfig struct {
	ChannelURL string `yaml:"channel_url"`
	Token      string `yaml:"token"`
	ChatID     string `yaml:"chat_id"`
}

// SymbolConfig maps one unified symbol to each venue's native pair
// string, loaded into an order.SymbolMaster at startup.
type SymbolConfig struct {
	Unified string            `yaml:"unified"`
	Native  map[string]string `yaml:"native"` // venue name -> native pair
}

// TransferAddressConfig is one venue's whitelisted withdrawal
// destination, loaded into a transfer.AddressBook at startup.
type TransferAddressConfig struct {
	Address        string `yaml:"address"`
	DestinationTag string `yaml:"destination_tag"`
	Whitelisted    bool   `yaml:"whitelisted"`
}

// Config is the root document.
type Config struct {
	Exchanges map[string]ExchangeConfig       `yaml:"exchanges"`
	Strategy  StrategyConfig                  `yaml:"strategy"`
	Risk      RiskConfig                      `yaml:"risk"`
	Server    ServerConfig                    `yaml:"server"`
	Alert     AlertConfig                     `yaml:"alert"`
	Symbols   []SymbolConfig                  `yaml:"symbols"`
	Transfer  map[string]TransferAddressConfig `yaml:"transfer_addresses"`

	RedisAddr    string `yaml:"redis_addr"`
	PostgresDSN  string `yaml:"postgres_dsn"`
	FXSourcePath string `yaml:"fx_source_path"`
}

// Validate checks the invariants that, if violated, make the
// configuration unsafe to trade on — a fatal startup error per
// spec.md §7's "ConfigError is fatal at startup".
func (c *Config) Validate() error {
	if c.Strategy.MinEntryPremiumPercent >= c.Strategy.MaxEntryPremiumPercent {
		return fmt.Errorf("strategy.min_entry_premium_percent must be below max_entry_premium_percent")
	}
	if c.Strategy.MinOrderQuantity <= 0 {
		return fmt.Errorf("strategy.min_order_quantity must be positive")
	}
	if c.Strategy.MaxOrderQuantity < c.Strategy.MinOrderQuantity {
		return fmt.Errorf("strategy.max_order_quantity must be >= min_order_quantity")
	}
	if c.Risk.DailyLossLimitKRW <= 0 {
		return fmt.Errorf("risk.daily_loss_limit_krw must be positive")
	}
	if c.Risk.MaxConcurrentOrders <= 0 {
		return fmt.Errorf("risk.max_concurrent_orders must be positive")
	}
	for name, ex := range c.Exchanges {
		if !ex.Enabled {
			continue
		}
		if _, ok := domain.ParseVenue(name); !ok {
			return fmt.Errorf("exchanges: unknown venue %q", name)
		}
		if ex.WSURL == "" {
			return fmt.Errorf("exchanges.%s: ws_url is required when enabled", name)
		}
		if ex.OrderRPS <= 0 {
			return fmt.Errorf("exchanges.%s: order_rps must be positive", name)
		}
	}
	return nil
}

// EnabledVenues returns the venues whose exchange block is present and
// enabled.
func (c *Config) EnabledVenues() []domain.Venue {
	var out []domain.Venue
	for name, ex := range c.Exchanges {
		if !ex.Enabled {
			continue
		}
		if v, ok := domain.ParseVenue(name); ok {
			out = append(out, v)
		}
	}
	return out
}
