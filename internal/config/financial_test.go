package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinancialConfigDefaultsAreValid(t *testing.T) {
	require.NoError(t, validateFinancialConfig(DefaultFinancialConfig()))
}

func TestFinancialConfigRejectsOutOfRangeValues(t *testing.T) {
	cfg := DefaultFinancialConfig()
	cfg.DefaultGSTRateBps = 12000
	assert.Error(t, validateFinancialConfig(cfg))

	cfg = DefaultFinancialConfig()
	cfg.QuoteValidityDays = 0
	assert.Error(t, validateFinancialConfig(cfg))

	cfg = DefaultFinancialConfig()
	cfg.DefaultDepositPercentage = 101
	assert.Error(t, validateFinancialConfig(cfg))
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *FinancialConfigHolder
	assert.Equal(t, DefaultFinancialConfig(), holder.Get())

	static := NewStaticFinancialConfig(FinancialConfig{DefaultGSTRateBps: 0, QuoteValidityDays: 7, InvoiceDueDays: 7})
	assert.Equal(t, 7, static.Get().QuoteValidityDays)
}
