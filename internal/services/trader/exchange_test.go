package trader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

func sizedOrder(t *testing.T) domain.Order {
	t.Helper()
	order, err := domain.SizeOrder(decimal.NewFromInt(10), decimal.NewFromInt(60000), domain.LotSize{
		MinVolume: decimal.RequireFromString("0.00001"),
		Step:      decimal.RequireFromString("0.00001"),
	})
	require.NoError(t, err)
	return order
}

func TestBinanceTrader_Buy_SendsStepAlignedQuantity(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		form = r.Form
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"symbol":"BTCUSDT","orderId":1,"clientOrderId":"id-1","status":"FILLED"}`)
	}))
	defer srv.Close()

	client := binance.NewClient("key", "secret")
	client.BaseURL = srv.URL

	require.NoError(t, NewBinanceTrader(client).Buy(context.Background(), "BTCUSDT", sizedOrder(t), "id-1"))

	require.NotNil(t, form)
	assert.Equal(t, "0.00016", form["quantity"][0])
	assert.Equal(t, "MARKET", form["type"][0])
	assert.Equal(t, "id-1", form["newClientOrderId"][0])
}

func TestBinanceTrader_Buy_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"symbol":"BTCUSDT","orderId":1,"status":"REJECTED"}`)
	}))
	defer srv.Close()

	client := binance.NewClient("key", "secret")
	client.BaseURL = srv.URL

	err := NewBinanceTrader(client).Buy(context.Background(), "BTCUSDT", sizedOrder(t), "id-1")
	require.Error(t, err)
}

func TestBybitTrader_Buy_SendsBaseCoinVolume(t *testing.T) {
	var sent map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/order/create", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"orderId":"1","orderLinkId":"id-1"},"retExtInfo":{},"time":1}`)
	}))
	defer srv.Close()

	client := bybit.NewClient().WithBaseURL(srv.URL).WithAuth("key", "secret")
	order := sizedOrder(t)

	require.NoError(t, NewBybitTrader(client).Buy(context.Background(), "BTCUSDT", order, "id-1"))

	require.NotNil(t, sent)
	assert.Equal(t, "0.00016", sent["qty"])
	assert.Equal(t, "baseCoin", sent["marketUnit"])
	assert.Equal(t, "Buy", sent["side"])
	assert.Equal(t, "Market", sent["orderType"])
	assert.Equal(t, "id-1", sent["orderLinkId"])
	assert.NotEqual(t, order.Cost.String(), sent["qty"])
}

func TestBybitTrader_Buy_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"retCode":170137,"retMsg":"Order quantity has too many decimals.","result":{},"retExtInfo":{},"time":1}`)
	}))
	defer srv.Close()

	client := bybit.NewClient().WithBaseURL(srv.URL).WithAuth("key", "secret")

	err := NewBybitTrader(client).Buy(context.Background(), "BTCUSDT", sizedOrder(t), "id-1")
	require.Error(t, err)
}
