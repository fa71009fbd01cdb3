package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/wefund_test")
	t.Setenv("XAMAN_API_KEY", "key")
	t.Setenv("XAMAN_API_SECRET", "secret")
	t.Setenv("PLATFORM_WALLET_ADDRESS", "rPlatform")
	t.Setenv("PLATFORM_WALLET_SEED", "sSeed")
	t.Setenv("CHARITY_WALLET_ADDRESS", "rCharity")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, int64(12), cfg.ForwardFeeDrops)
	assert.Equal(t, int64(10_000_000), cfg.WalletReserveDrops)
	assert.Equal(t, 5*time.Minute, cfg.PayloadWaitTimeout)
	assert.Equal(t, int32(5), cfg.ForwardMaxAttempts)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9100")
	t.Setenv("FORWARD_FEE_DROPS", "20")
	t.Setenv("RECONCILER_INTERVAL", "1m")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, int64(20), cfg.ForwardFeeDrops)
	assert.Equal(t, time.Minute, cfg.ReconcilerInterval)
}

func TestLoad_MissingSecrets(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{name: "database url", omit: "DATABASE_URL"},
		{name: "gateway key", omit: "XAMAN_API_KEY"},
		{name: "platform seed", omit: "PLATFORM_WALLET_SEED"},
		{name: "charity address", omit: "CHARITY_WALLET_ADDRESS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.omit, "")

			_, err := Load()

			assert.Error(t, err)
		})
	}
}
