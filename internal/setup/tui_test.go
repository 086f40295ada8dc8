package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/rebalancer/config"
)

func TestBuildConfig(t *testing.T) {
	tmp, err := BuildConfig(Answers{
		Platform:      config.PlatformBinance,
		MonthlyBudget: " 300 ",
		Schedule:      "0 * * * *",
		Allocations: []config.AllocationTmp{
			{Symbol: "BTC", Market: "BTCUSDT", Fraction: "0.7"},
			{Symbol: "ETH", Market: "ETHUSDT", Fraction: "0.3"},
		},
		Notify: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "300", tmp.MonthlyBudget)
	assert.True(t, tmp.Notify.Enabled)

	raw, err := config.Marshal(tmp)
	require.NoError(t, err)
	cfg, err := config.Parse(raw)
	require.NoError(t, err)
	assert.Len(t, cfg.Allocations, 2)
}

func TestBuildConfig_Invalid(t *testing.T) {
	_, err := BuildConfig(Answers{
		Platform:      config.PlatformBinance,
		MonthlyBudget: "300",
	})
	require.Error(t, err)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateBudget("10"))
	assert.Error(t, validateBudget("0"))
	assert.Error(t, validateBudget("ten"))

	assert.NoError(t, validateFraction("1"))
	assert.NoError(t, validateFraction("0.25"))
	assert.Error(t, validateFraction("0"))
	assert.Error(t, validateFraction("1.01"))

	assert.Error(t, notEmpty("symbol")("  "))
	assert.NoError(t, notEmpty("symbol")("BTC"))
}
