package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all environment-driven settings for the settlement service.
type Config struct {
	Port        string
	DatabaseURL string
	BaseURL     string

	// Signing gateway
	XamanAPIBase   string
	XamanAPIKey    string
	XamanAPISecret string

	// Ledger network
	XRPLAPIURL string

	// Platform (intermediary) custodial wallet
	PlatformWalletAddress string
	PlatformWalletSeed    string

	// Final recipient wallet
	CharityWalletAddress string

	// Forwarding economics, in drops
	ForwardFeeDrops    int64
	WalletReserveDrops int64

	// Payload waiter
	PayloadWaitInitial time.Duration
	PayloadWaitMax     time.Duration
	PayloadWaitTimeout time.Duration

	// Forward reconciler
	ReconcilerWorkers  int
	ReconcilerInterval time.Duration
	ForwardMaxAttempts int32
}

// Load reads the configuration from the environment. Secrets are never
// defaulted; missing required values fail startup.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		BaseURL:               getEnv("BASE_URL", "http://localhost:3000"),
		XamanAPIBase:          getEnv("XAMAN_API_BASE", "https://xumm.app/api/v1"),
		XamanAPIKey:           os.Getenv("XAMAN_API_KEY"),
		XamanAPISecret:        os.Getenv("XAMAN_API_SECRET"),
		XRPLAPIURL:            getEnv("XRPL_API_URL", "https://s.altnet.rippletest.net:51234/"),
		PlatformWalletAddress: os.Getenv("PLATFORM_WALLET_ADDRESS"),
		PlatformWalletSeed:    os.Getenv("PLATFORM_WALLET_SEED"),
		CharityWalletAddress:  os.Getenv("CHARITY_WALLET_ADDRESS"),
		ForwardFeeDrops:       getEnvInt64("FORWARD_FEE_DROPS", 12),
		WalletReserveDrops:    getEnvInt64("WALLET_RESERVE_DROPS", 10_000_000),
		PayloadWaitInitial:    getEnvDuration("PAYLOAD_WAIT_INITIAL", 2*time.Second),
		PayloadWaitMax:        getEnvDuration("PAYLOAD_WAIT_MAX", 15*time.Second),
		PayloadWaitTimeout:    getEnvDuration("PAYLOAD_WAIT_TIMEOUT", 5*time.Minute),
		ReconcilerWorkers:     int(getEnvInt64("RECONCILER_WORKERS", 2)),
		ReconcilerInterval:    getEnvDuration("RECONCILER_INTERVAL", 30*time.Second),
		ForwardMaxAttempts:    int32(getEnvInt64("FORWARD_MAX_ATTEMPTS", 5)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.XamanAPIKey == "" || cfg.XamanAPISecret == "" {
		return nil, fmt.Errorf("XAMAN_API_KEY and XAMAN_API_SECRET environment variables are required")
	}
	if cfg.PlatformWalletAddress == "" {
		return nil, fmt.Errorf("PLATFORM_WALLET_ADDRESS environment variable is required")
	}
	if cfg.PlatformWalletSeed == "" {
		return nil, fmt.Errorf("PLATFORM_WALLET_SEED environment variable is required")
	}
	if cfg.CharityWalletAddress == "" {
		return nil, fmt.Errorf("CHARITY_WALLET_ADDRESS environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
