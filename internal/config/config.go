// Package config defines all configuration for the grid-trading bot.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via GRIDBOT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun  bool           `mapstructure:"dry_run"`
	Wallet  WalletConfig   `mapstructure:"wallet"`
	Venue   VenueConfig    `mapstructure:"venue"`
	Trading TradingConfig  `mapstructure:"trading"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Notify  NotifyConfig   `mapstructure:"notify"`
	Status  StatusConfig   `mapstructure:"status"`
}

// WalletConfig holds the Ethereum wallet used to derive the venue trading
// account. PrivateKey signs L1 (EIP-712) auth and derives L2 API keys;
// FunderAddress is the on-chain account funding orders (may differ from the
// signer when the venue uses a proxy/sub-account wallet).
type WalletConfig struct {
	PrivateKey    string `mapstructure:"private_key"`
	SignatureType int    `mapstructure:"signature_type"`
	FunderAddress string `mapstructure:"funder_address"`
	ChainID       int    `mapstructure:"chain_id"`
}

// VenueConfig selects and configures the exchange adapter. Name is looked up
// in the venue registry (case-insensitive): "lighter" or "grvt".
type VenueConfig struct {
	Name        string `mapstructure:"name"`
	RESTBaseURL string `mapstructure:"rest_base_url"`
	WSBaseURL   string `mapstructure:"ws_base_url"`
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	AccountID   string `mapstructure:"account_id"`
}

// TradingConfig tunes the grid/take-profit strategy for a single
// (ticker, venue, direction). Field names match spec.md §3's TradingConfig.
type TradingConfig struct {
	Ticker             string        `mapstructure:"ticker"`
	Quantity           string        `mapstructure:"quantity"` // decimal string, parsed by ToTradingConfig
	TakeProfitPct      string        `mapstructure:"take_profit"`
	Direction          string        `mapstructure:"direction"` // "buy" or "sell"
	MaxOrders          int           `mapstructure:"max_orders"`
	WaitTime           time.Duration `mapstructure:"wait_time"`
	GridStepPct        string        `mapstructure:"grid_step"`
	StopPrice          string        `mapstructure:"stop_price"`  // "-1" disables
	PausePrice         string        `mapstructure:"pause_price"` // "-1" disables
	BoostMode          bool          `mapstructure:"boost_mode"`
	RefreshStaleCloses bool          `mapstructure:"refresh_stale_closes"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NotifyConfig configures the notification sinks. Telegram credentials fall
// back to the TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID env vars when unset here,
// matching the original bot's convention.
type NotifyConfig struct {
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`
	WebhookURL       string `mapstructure:"webhook_url"`
}

// StatusConfig controls the operator-facing /health and /status HTTP server.
type StatusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: GRIDBOT_PRIVATE_KEY, GRIDBOT_API_KEY,
// GRIDBOT_API_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("GRIDBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("GRIDBOT_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if key := os.Getenv("GRIDBOT_API_KEY"); key != "" {
		cfg.Venue.APIKey = key
	}
	if secret := os.Getenv("GRIDBOT_API_SECRET"); secret != "" {
		cfg.Venue.APISecret = secret
	}
	if os.Getenv("GRIDBOT_DRY_RUN") == "true" || os.Getenv("GRIDBOT_DRY_RUN") == "1" {
		cfg.DryRun = true
	}
	if tok := os.Getenv("TELEGRAM_BOT_TOKEN"); tok != "" && cfg.Notify.TelegramBotToken == "" {
		cfg.Notify.TelegramBotToken = tok
	}
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" && cfg.Notify.TelegramChatID == "" {
		cfg.Notify.TelegramChatID = chat
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required (set GRIDBOT_PRIVATE_KEY)")
	}
	if c.Wallet.ChainID == 0 {
		return fmt.Errorf("wallet.chain_id is required")
	}
	switch c.Wallet.SignatureType {
	case 0, 1, 2:
	default:
		return fmt.Errorf("wallet.signature_type must be one of: 0 (EOA), 1 (PROXY), 2 (MULTISIG)")
	}
	if c.Wallet.SignatureType != 0 && c.Wallet.FunderAddress == "" {
		return fmt.Errorf("wallet.funder_address is required when wallet.signature_type is 1 or 2")
	}
	if c.Venue.Name == "" {
		return fmt.Errorf("venue.name is required")
	}
	if c.Venue.RESTBaseURL == "" {
		return fmt.Errorf("venue.rest_base_url is required")
	}
	if c.Trading.Ticker == "" {
		return fmt.Errorf("trading.ticker is required")
	}
	if c.Trading.Quantity == "" {
		return fmt.Errorf("trading.quantity is required")
	}
	switch c.Trading.Direction {
	case "buy", "sell":
	default:
		return fmt.Errorf("trading.direction must be 'buy' or 'sell'")
	}
	if c.Trading.MaxOrders <= 0 {
		return fmt.Errorf("trading.max_orders must be > 0")
	}
	if c.Trading.WaitTime <= 0 {
		return fmt.Errorf("trading.wait_time must be > 0")
	}
	if c.Status.Enabled && c.Status.Port == 0 {
		return fmt.Errorf("status.port is required when status.enabled is true")
	}
	return nil
}
