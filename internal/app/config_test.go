package app

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.QuoteExpiryDays)
	assert.True(t, cfg.QuoteRevisionThreshold.Equal(decimal.NewFromInt(10)))
	assert.True(t, cfg.DepositPercentage.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 14, cfg.InvoicePaymentTermDays)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("QUOTE_EXPIRY_DAYS", "14")
	t.Setenv("DEPOSIT_PERCENTAGE", "25.5")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.QuoteExpiryDays)
	assert.True(t, cfg.DepositPercentage.Equal(decimal.RequireFromString("25.5")))
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadDeposit(t *testing.T) {
	t.Setenv("DEPOSIT_PERCENTAGE", "120")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "DEPOSIT_PERCENTAGE")

	t.Setenv("DEPOSIT_PERCENTAGE", "abc")
	_, err = LoadConfig()
	assert.Error(t, err)
}
