// Package config defines the top-level configuration for the AMM gateway
// connector and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by AMMBOT_* environment
// variables.
type Config struct {
	Gateway   GatewayConfig   `toml:"gateway"`
	Wallet    WalletConfig    `toml:"wallet"`
	Connector ConnectorConfig `toml:"connector"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	LogLevel  string          `toml:"log_level"`
}

// GatewayConfig holds the execution gateway endpoint and venue naming.
type GatewayConfig struct {
	BaseURL   string `toml:"base_url"`
	Chain     string `toml:"chain"`
	Network   string `toml:"network"`
	Connector string `toml:"connector"`
}

// WalletConfig holds the wallet whose balances and orders are managed.
// Key material never enters this process; signing happens in the gateway.
type WalletConfig struct {
	Address string `toml:"address"`
}

// ConnectorConfig holds reconciliation engine tunables.
type ConnectorConfig struct {
	TradingPairs      []string `toml:"trading_pairs"`
	GasPrice          string   `toml:"gas_price"`
	TickInterval      duration `toml:"tick_interval"`
	MinBalanceRefresh duration `toml:"min_balance_refresh"`
	SubmissionTimeout duration `toml:"submission_timeout"`
	TerminalGrace     duration `toml:"terminal_grace"`

	// AmountQuanta maps asset symbols to their minimal increment, as
	// decimal strings (e.g. WETH = "0.000000000000001"). Amounts from the
	// gateway are truncated to these increments on ingestion.
	AmountQuanta map[string]string `toml:"amount_quanta"`
}

// GasPriceDecimal parses the configured gas price.
func (c ConnectorConfig) GasPriceDecimal() (decimal.Decimal, error) {
	if c.GasPrice == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(c.GasPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: parse gas_price %q: %w", c.GasPrice, err)
	}
	return d, nil
}

// PostgresConfig holds PostgreSQL connection parameters for the fill
// archive and audit log. Disabled when Enabled is false.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the gateway rate
// limiter and the event mirror stream. Disabled when Enabled is false.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds object storage parameters for the terminal-order archive.
// Disabled when Enabled is false.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			BaseURL:   "https://localhost:15888",
			Chain:     "ethereum",
			Network:   "mainnet",
			Connector: "uniswap",
		},
		Connector: ConnectorConfig{
			TickInterval:      duration{time.Second},
			MinBalanceRefresh: duration{30 * time.Second},
			SubmissionTimeout: duration{60 * time.Second},
			TerminalGrace:     duration{10 * time.Minute},
			AmountQuanta:      map[string]string{},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "ammbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "ammbot-orders",
			ForcePathStyle: true,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Gateway
	if c.Gateway.BaseURL == "" {
		errs = append(errs, "gateway: base_url must not be empty")
	}
	if c.Gateway.Chain == "" {
		errs = append(errs, "gateway: chain must not be empty")
	}
	if c.Gateway.Network == "" {
		errs = append(errs, "gateway: network must not be empty")
	}
	if c.Gateway.Connector == "" {
		errs = append(errs, "gateway: connector must not be empty")
	}

	// Wallet
	if c.Wallet.Address == "" {
		errs = append(errs, "wallet: address must not be empty")
	}

	// Connector
	if len(c.Connector.TradingPairs) == 0 {
		errs = append(errs, "connector: trading_pairs must not be empty")
	}
	for _, p := range c.Connector.TradingPairs {
		if !strings.Contains(p, "-") {
			errs = append(errs, fmt.Sprintf("connector: trading pair %q must be BASE-QUOTE", p))
		}
	}
	if c.Connector.TickInterval.Duration <= 0 {
		errs = append(errs, "connector: tick_interval must be > 0")
	}
	if c.Connector.MinBalanceRefresh.Duration <= 0 {
		errs = append(errs, "connector: min_balance_refresh must be > 0")
	}
	if c.Connector.SubmissionTimeout.Duration <= 0 {
		errs = append(errs, "connector: submission_timeout must be > 0")
	}
	if _, err := c.Connector.GasPriceDecimal(); err != nil {
		errs = append(errs, err.Error())
	}
	for asset, raw := range c.Connector.AmountQuanta {
		if _, err := decimal.NewFromString(raw); err != nil {
			errs = append(errs, fmt.Sprintf("connector: amount quantum for %s: invalid decimal %q", asset, raw))
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Quanta builds the decimal quantum table from the configured strings. Call
// Validate first; invalid entries are skipped here.
func (c *Config) Quanta() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.Connector.AmountQuanta))
	for asset, raw := range c.Connector.AmountQuanta {
		if d, err := decimal.NewFromString(raw); err == nil {
			out[asset] = d
		}
	}
	return out
}
