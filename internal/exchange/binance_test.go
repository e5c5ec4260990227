package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot_bot/internal/models"
)

func newTestClient(h http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewClient(srv.URL, 5*time.Second)
	c.SetCreds("test-key", "test-secret")
	return c, srv
}

func TestClient_GetPrice(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50123.45000000"}`))
	})
	defer srv.Close()

	px, err := c.GetPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 50123.45, px)
}

func TestClient_GetPrice_HTTPError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	})
	defer srv.Close()

	_, err := c.GetPrice(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 400")
}

func TestClient_GetSymbolConstraints(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
		w.Write([]byte(`{"symbols":[{"symbol":"BTCUSDT","filters":[
			{"filterType":"LOT_SIZE","stepSize":"0.00001000"},
			{"filterType":"PRICE_FILTER","tickSize":"0.01000000","minPrice":"1.00000000","maxPrice":"1000000.00000000"}
		]}]}`))
	})
	defer srv.Close()

	cons, err := c.GetSymbolConstraints(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, models.SymbolConstraints{TickSize: 0.01, MinPrice: 1, MaxPrice: 1000000}, cons)
}

func TestClient_GetSymbolConstraints_NoPriceFilter(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[{"symbol":"BTCUSDT","filters":[]}]}`))
	})
	defer srv.Close()

	_, err := c.GetSymbolConstraints(context.Background(), "BTCUSDT")
	require.Error(t, err)
}

func TestClient_GetBalance(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-MBX-APIKEY"))
		assert.NotEmpty(t, r.URL.Query().Get("signature"))
		assert.NotEmpty(t, r.URL.Query().Get("timestamp"))
		w.Write([]byte(`{"balances":[
			{"asset":"BTC","free":"0.00200000","locked":"0"},
			{"asset":"USDT","free":"10000.50000000","locked":"0"}
		]}`))
	})
	defer srv.Close()

	free, err := c.GetBalance(context.Background(), "USDT")
	require.NoError(t, err)
	assert.Equal(t, 10000.5, free)

	// unknown asset is a zero balance, not an error
	free, err = c.GetBalance(context.Background(), "DOGE")
	require.NoError(t, err)
	assert.Zero(t, free)
}

func TestClient_SubmitOrder_MarketFill(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/order", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "BUY", q.Get("side"))
		assert.Equal(t, "MARKET", q.Get("type"))
		assert.Equal(t, "0.002", q.Get("quantity"))
		assert.Empty(t, q.Get("timeInForce"))
		w.Write([]byte(`{"orderId":42,"status":"FILLED","transactTime":1700000000000,
			"executedQty":"0.00200000",
			"fills":[{"price":"50000.00","qty":"0.001"},{"price":"50010.00","qty":"0.001"}]}`))
	})
	defer srv.Close()

	rcpt, err := c.SubmitOrder(context.Background(), models.TradeIntent{
		Symbol: "BTCUSDT", Side: models.SideBuy, Kind: models.KindMarket, Quantity: 0.002,
	}, "")
	require.NoError(t, err)
	assert.True(t, rcpt.Filled())
	assert.Equal(t, int64(42), rcpt.OrderID)
	assert.InDelta(t, 50005.0, rcpt.FillPrice, 1e-9)
	assert.InDelta(t, 0.002, rcpt.FillQty, 1e-12)
}

func TestClient_SubmitOrder_LimitGTC(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "LIMIT", q.Get("type"))
		assert.Equal(t, "GTC", q.Get("timeInForce"))
		assert.Equal(t, "50000.04", q.Get("price"))
		w.Write([]byte(`{"orderId":43,"status":"NEW","transactTime":1700000000000,"executedQty":"0","fills":[]}`))
	})
	defer srv.Close()

	rcpt, err := c.SubmitOrder(context.Background(), models.TradeIntent{
		Symbol: "BTCUSDT", Side: models.SideSell, Kind: models.KindLimit, Quantity: 0.001, LimitPrice: 50000.04,
	}, models.TifGTC)
	require.NoError(t, err)
	assert.False(t, rcpt.Filled())
	assert.Zero(t, rcpt.FillPrice)
}

func TestClient_SubmitOrder_Rejected(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2010,"msg":"Account has insufficient balance for requested action."}`))
	})
	defer srv.Close()

	_, err := c.SubmitOrder(context.Background(), models.TradeIntent{
		Symbol: "BTCUSDT", Side: models.SideBuy, Kind: models.KindMarket, Quantity: 99,
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-2010")
}
