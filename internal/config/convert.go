package config

import (
	"fmt"

	"github.com/shopspring/decimal"

	"gridbot/internal/venue"
	"gridbot/pkg/types"
)

// ToTradingConfig parses the string-valued decimal fields TradingConfig
// carries at the YAML/env layer into the fixed-point types the engine and
// adapters operate on.
func (c *Config) ToTradingConfig() (types.TradingConfig, error) {
	quantity, err := decimal.NewFromString(c.Trading.Quantity)
	if err != nil {
		return types.TradingConfig{}, fmt.Errorf("parse trading.quantity: %w", err)
	}
	takeProfit, err := decimal.NewFromString(c.Trading.TakeProfitPct)
	if err != nil {
		return types.TradingConfig{}, fmt.Errorf("parse trading.take_profit: %w", err)
	}
	gridStep, err := decimal.NewFromString(orDefault(c.Trading.GridStepPct, "0"))
	if err != nil {
		return types.TradingConfig{}, fmt.Errorf("parse trading.grid_step: %w", err)
	}
	stopPrice, err := decimal.NewFromString(orDefault(c.Trading.StopPrice, "-1"))
	if err != nil {
		return types.TradingConfig{}, fmt.Errorf("parse trading.stop_price: %w", err)
	}
	pausePrice, err := decimal.NewFromString(orDefault(c.Trading.PausePrice, "-1"))
	if err != nil {
		return types.TradingConfig{}, fmt.Errorf("parse trading.pause_price: %w", err)
	}

	return types.TradingConfig{
		Ticker:             c.Trading.Ticker,
		Quantity:           quantity,
		TakeProfitPct:      takeProfit,
		Direction:          types.Side(c.Trading.Direction),
		MaxOrders:          c.Trading.MaxOrders,
		WaitTime:           c.Trading.WaitTime,
		Venue:              c.Venue.Name,
		GridStepPct:        gridStep,
		StopPrice:          stopPrice,
		PausePrice:         pausePrice,
		BoostMode:          c.Trading.BoostMode,
		RefreshStaleCloses: c.Trading.RefreshStaleCloses,
	}, nil
}

// ToVenueConfig maps wallet/venue configuration into the shape venue
// constructors expect, precomputing CloseSide so adapters never need a
// post-construction setter call before Connect.
func (c *Config) ToVenueConfig(trading types.TradingConfig) venue.Config {
	return venue.Config{
		Ticker:        c.Trading.Ticker,
		PrivateKeyHex: c.Wallet.PrivateKey,
		SignatureType: c.Wallet.SignatureType,
		FunderAddress: c.Wallet.FunderAddress,
		ChainID:       c.Wallet.ChainID,
		RESTBaseURL:   c.Venue.RESTBaseURL,
		WSBaseURL:     c.Venue.WSBaseURL,
		APIKey:        c.Venue.APIKey,
		APISecret:     c.Venue.APISecret,
		AccountID:     c.Venue.AccountID,
		DryRun:        c.DryRun,
		CloseSide:     trading.CloseSide(),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
