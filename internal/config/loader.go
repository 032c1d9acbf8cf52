package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies AMMBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known AMMBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Gateway ──
	setStr(&cfg.Gateway.BaseURL, "AMMBOT_GATEWAY_BASE_URL")
	setStr(&cfg.Gateway.Chain, "AMMBOT_GATEWAY_CHAIN")
	setStr(&cfg.Gateway.Network, "AMMBOT_GATEWAY_NETWORK")
	setStr(&cfg.Gateway.Connector, "AMMBOT_GATEWAY_CONNECTOR")

	// ── Wallet ──
	setStr(&cfg.Wallet.Address, "AMMBOT_WALLET_ADDRESS")

	// ── Connector ──
	setStringSlice(&cfg.Connector.TradingPairs, "AMMBOT_CONNECTOR_TRADING_PAIRS")
	setStr(&cfg.Connector.GasPrice, "AMMBOT_CONNECTOR_GAS_PRICE")
	setDuration(&cfg.Connector.TickInterval, "AMMBOT_CONNECTOR_TICK_INTERVAL")
	setDuration(&cfg.Connector.MinBalanceRefresh, "AMMBOT_CONNECTOR_MIN_BALANCE_REFRESH")
	setDuration(&cfg.Connector.SubmissionTimeout, "AMMBOT_CONNECTOR_SUBMISSION_TIMEOUT")
	setDuration(&cfg.Connector.TerminalGrace, "AMMBOT_CONNECTOR_TERMINAL_GRACE")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "AMMBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "AMMBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "AMMBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "AMMBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "AMMBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "AMMBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "AMMBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "AMMBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "AMMBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "AMMBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "AMMBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "AMMBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "AMMBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AMMBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AMMBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "AMMBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "AMMBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "AMMBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "AMMBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "AMMBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "AMMBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "AMMBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "AMMBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "AMMBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "AMMBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "AMMBOT_S3_FORCE_PATH_STYLE")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "AMMBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
