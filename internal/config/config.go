// Package config reads the gateway's settings from the environment:
// plain env vars with typed getters and defaults, no YAML/viper
// config-file loading.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds every environment-tunable the gateway reads at startup.
type Config struct {
	Debug bool

	// Bus addresses.
	IngressAddr string
	EgressAddr  string

	// Bybit-shape CEX adapter.
	BybitAPIKey       string
	BybitAPISecret    string
	BybitTestnet      bool
	BybitRESTBaseURL  string
	BybitWSPrivateURL string
	BybitRecvWindowMs int

	// Hyperliquid-shape DEX adapter.
	HLPrivateKey       string
	HLSignerSubprocess string
	HLTestnet          bool
	HLRESTBaseURL      string
	HLWSURL            string
	HLVaultAddress     string

	// HTTP client tuning.
	HTTPConnectTimeoutMs int
	HTTPTimeoutMs        int

	// DEX batching/backoff tuning.
	BatchCadenceMs        int
	IOCSlippageBps        int
	BackoffMsOn429        int
	WSPostTimeoutMs       int
	ResubscribeQuietMs    int
	ReconnectQuietMs      int
	ConfirmRestingRetries int
	ConfirmRestingEveryMs int

	// Asset resolver cache TTL.
	AssetCacheTTL time.Duration

	// Ingress idempotency set capacity.
	ProcessedIDSetCapacity int
}

// Load builds a Config from environment variables, applying a documented
// default where a variable is unset.
func Load() *Config {
	return &Config{
		Debug: getEnvBool("DEBUG", false),

		IngressAddr: getEnv("LATENTSPEED_INGRESS_ADDR", "tcp://127.0.0.1:5601"),
		EgressAddr:  getEnv("LATENTSPEED_EGRESS_ADDR", "tcp://127.0.0.1:5602"),

		BybitAPIKey:       os.Getenv("BYBIT_API_KEY"),
		BybitAPISecret:    os.Getenv("BYBIT_API_SECRET"),
		BybitTestnet:      getEnvBool("BYBIT_TESTNET", false),
		BybitRESTBaseURL:  getEnv("BYBIT_REST_BASE_URL", "https://api.bybit.com"),
		BybitWSPrivateURL: getEnv("BYBIT_WS_PRIVATE_URL", "wss://stream.bybit.com/v5/private"),
		BybitRecvWindowMs: getEnvInt("BYBIT_RECV_WINDOW_MS", 5000),

		HLPrivateKey:       os.Getenv("HYPERLIQUID_PRIVATE_KEY"),
		HLSignerSubprocess: os.Getenv("HYPERLIQUID_SIGNER_SUBPROCESS"),
		HLTestnet:          getEnvBool("HYPERLIQUID_TESTNET", false),
		HLRESTBaseURL:      getEnv("HYPERLIQUID_REST_BASE_URL", "https://api.hyperliquid.xyz"),
		HLWSURL:            getEnv("HYPERLIQUID_WS_URL", "wss://api.hyperliquid.xyz/ws"),
		HLVaultAddress:     os.Getenv("HYPERLIQUID_VAULT_ADDRESS"),

		HTTPConnectTimeoutMs: getEnvInt("LATENTSPEED_HTTP_CONNECT_TIMEOUT_MS", 1500),
		HTTPTimeoutMs:        getEnvInt("LATENTSPEED_HTTP_TIMEOUT_MS", 2500),

		BatchCadenceMs:        getEnvInt("LATENTSPEED_HL_BATCH_CADENCE_MS", 100),
		IOCSlippageBps:        getEnvInt("LATENTSPEED_HL_IOC_MARKET_SLIPPAGE_BPS", 10),
		BackoffMsOn429:        getEnvInt("LATENTSPEED_HL_ON_429_BACKOFF_MS", 10000),
		WSPostTimeoutMs:       getEnvInt("LATENTSPEED_HL_WS_POST_TIMEOUT_MS", 1500),
		ResubscribeQuietMs:    getEnvInt("LATENTSPEED_RESUBSCRIBE_QUIET_MS", 15000),
		ReconnectQuietMs:      getEnvInt("LATENTSPEED_RECONNECT_QUIET_MS", 45000),
		ConfirmRestingRetries: getEnvInt("LATENTSPEED_CONFIRM_RESTING_ATTEMPTS", 3),
		ConfirmRestingEveryMs: getEnvInt("LATENTSPEED_CONFIRM_RESTING_INTERVAL_MS", 4000),

		AssetCacheTTL: getEnvDuration("LATENTSPEED_ASSET_CACHE_TTL", 5*time.Minute),

		ProcessedIDSetCapacity: getEnvInt("LATENTSPEED_PROCESSED_ID_CAPACITY", 2048),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvDecimal is kept for adapters that need a decimal-valued env
// override (e.g. a manually pinned slippage fraction); unused today.
func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
