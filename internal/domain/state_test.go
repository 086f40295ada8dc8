package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestHourlyIncrement(t *testing.T) {
	inc := HourlyIncrement(d("720"))
	require.True(t, inc.Equal(d("1")))

	inc = HourlyIncrement(d("1000"))
	require.True(t, inc.Mul(decimal.NewFromInt(720)).Round(8).Equal(d("1000")))
}

func TestNewInitialState(t *testing.T) {
	state := NewInitialState(testAllocations(), d("1.5"))

	require.Len(t, state.Balances, 2)
	require.True(t, state.Balances["A"].IsZero())
	require.True(t, state.Balances["B"].IsZero())
	require.True(t, state.Allowance.Equal(d("1.5")))
	require.NoError(t, ValidateState(state, Symbols(testAllocations())))
}

func TestValidateState(t *testing.T) {
	symbols := []string{"A", "B"}

	tests := []struct {
		name  string
		state State
	}{
		{name: "missing asset", state: State{Balances: Balances{"A": d("1")}, Allowance: d("1")}},
		{name: "unknown asset", state: State{Balances: Balances{"A": d("1"), "C": d("1")}, Allowance: d("1")}},
		{name: "extra asset", state: State{Balances: Balances{"A": d("1"), "B": d("1"), "C": d("1")}, Allowance: d("1")}},
		{name: "negative balance", state: State{Balances: Balances{"A": d("-1"), "B": d("1")}, Allowance: d("1")}},
		{name: "negative allowance", state: State{Balances: Balances{"A": d("1"), "B": d("1")}, Allowance: d("-0.01")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateState(tt.state, symbols)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrCorruptState))
			require.Equal(t, ErrCorruptState, errors.Cause(err))
		})
	}
}

func TestState_Clone(t *testing.T) {
	state := State{Balances: Balances{"A": d("1")}, Allowance: d("2")}
	clone := state.Clone()
	clone.Balances["A"] = d("5")

	require.True(t, state.Balances["A"].Equal(d("1")))
}

func TestMarketData_GlobalMinOrderUSD(t *testing.T) {
	data := NewMarketData()
	data.Prices["A/USD"] = d("100")
	data.Prices["B/USD"] = d("50")
	data.MinSizes["A/USD"] = d("0.05")
	data.MinSizes["B/USD"] = d("0.3")

	globalMin, err := data.GlobalMinOrderUSD(testAllocations())
	require.NoError(t, err)
	require.True(t, globalMin.Equal(d("15")), "got %s", globalMin)
}

func TestMarketData_MissingData(t *testing.T) {
	data := NewMarketData()
	data.Prices["A/USD"] = d("100")
	data.MinSizes["A/USD"] = d("0.05")
	data.Prices["B/USD"] = d("50")

	_, err := data.GlobalMinOrderUSD(testAllocations())
	require.True(t, errors.Is(err, ErrMinSizeUnavailable))

	delete(data.Prices, "B/USD")
	_, err = data.GlobalMinOrderUSD(testAllocations())
	require.True(t, errors.Is(err, ErrPriceUnavailable))
}

func TestMarketData_Lot(t *testing.T) {
	data := NewMarketData()
	data.Set("A/USD", d("100"), LotSize{MinVolume: d("0.05"), Step: d("0.01")})
	data.MinSizes["B/USD"] = d("0.3")

	lot, err := data.Lot("A/USD")
	require.NoError(t, err)
	require.True(t, lot.MinVolume.Equal(d("0.05")))
	require.True(t, lot.Step.Equal(d("0.01")))

	lot, err = data.Lot("B/USD")
	require.NoError(t, err)
	require.True(t, lot.Step.IsZero())

	_, err = data.Lot("C/USD")
	require.True(t, errors.Is(err, ErrMinSizeUnavailable))
	require.Equal(t, ErrMinSizeUnavailable, errors.Cause(err))

	_, err = data.Price("C/USD")
	require.Equal(t, ErrPriceUnavailable, errors.Cause(err))
}

func TestNewAssetAllocation(t *testing.T) {
	_, err := NewAssetAllocation("BTC", "BTCUSDT", d("0.25"))
	require.NoError(t, err)

	_, err = NewAssetAllocation("BTC", "BTCUSDT", d("0"))
	require.Error(t, err)
	_, err = NewAssetAllocation("BTC", "BTCUSDT", d("1.01"))
	require.Error(t, err)
	_, err = NewAssetAllocation("", "BTCUSDT", d("0.5"))
	require.Error(t, err)
	_, err = NewAssetAllocation("BTC", "", d("0.5"))
	require.Error(t, err)
}

func TestTradeEvent_Text(t *testing.T) {
	ev := TradeEvent{Symbol: "A", Volume: d("0.1"), Price: d("100"), Cost: d("10")}

	require.Equal(t, "Bought 0.1 of A for a total of 10 USD", ev.String())
	require.Equal(t, "Trade Executed for A", ev.Subject())
	require.Equal(t, "Bought 0.1 of A at 100 USD for a total of 10 USD", ev.Body())
}
