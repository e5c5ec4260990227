package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot_bot/internal/exchange"
	"spot_bot/internal/models"
)

// mockPort scripts Port responses per call.
type mockPort struct {
	price    float64
	priceErr error

	cons    models.SymbolConstraints
	consErr error

	receipt   models.OrderReceipt
	submitErr error

	submitted []models.TradeIntent
	tifs      []models.TimeInForce
}

var _ exchange.Port = (*mockPort)(nil)

func (m *mockPort) Ping(context.Context) error                     { return nil }
func (m *mockPort) GetBalance(context.Context, string) (float64, error) { return 0, nil }

func (m *mockPort) GetPrice(context.Context, string) (float64, error) {
	return m.price, m.priceErr
}

func (m *mockPort) GetSymbolConstraints(context.Context, string) (models.SymbolConstraints, error) {
	return m.cons, m.consErr
}

func (m *mockPort) SubmitOrder(_ context.Context, intent models.TradeIntent, tif models.TimeInForce) (models.OrderReceipt, error) {
	m.submitted = append(m.submitted, intent)
	m.tifs = append(m.tifs, tif)
	return m.receipt, m.submitErr
}

func marketBuy() models.TradeIntent {
	return models.TradeIntent{Symbol: "BTCUSDT", Side: models.SideBuy, Kind: models.KindMarket, Quantity: 0.001}
}

func TestExecute_MarketUsesReceiptFillPrice(t *testing.T) {
	port := &mockPort{
		price:   50000,
		receipt: models.OrderReceipt{OrderID: 1, Status: "FILLED", FillPrice: 50007.5},
	}
	out, err := New(port).Execute(context.Background(), marketBuy())
	require.NoError(t, err)
	assert.True(t, out.Filled)
	assert.Equal(t, 50007.5, out.Price)
}

func TestExecute_MarketFallsBackToQuote(t *testing.T) {
	port := &mockPort{
		price:   50000,
		receipt: models.OrderReceipt{OrderID: 1, Status: "FILLED"},
	}
	out, err := New(port).Execute(context.Background(), marketBuy())
	require.NoError(t, err)
	assert.Equal(t, 50000.0, out.Price)
}

func TestExecute_MarketQuoteFailure(t *testing.T) {
	port := &mockPort{priceErr: errors.New("timeout")}
	_, err := New(port).Execute(context.Background(), marketBuy())

	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, KindExecution, xerr.Kind)
	assert.Empty(t, port.submitted, "no order may be sent without a quote")
}

func TestExecute_MarketSubmitFailure(t *testing.T) {
	port := &mockPort{price: 50000, submitErr: errors.New("rejected")}
	_, err := New(port).Execute(context.Background(), marketBuy())

	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, KindExecution, xerr.Kind)
	assert.ErrorContains(t, err, "rejected")
}

func TestExecute_LimitClampsAndSubmitsGTC(t *testing.T) {
	port := &mockPort{
		cons:    models.SymbolConstraints{TickSize: 0.01, MinPrice: 1, MaxPrice: 1000000},
		receipt: models.OrderReceipt{OrderID: 2, Status: "NEW"},
	}
	out, err := New(port).Execute(context.Background(), models.TradeIntent{
		Symbol: "BTCUSDT", Side: models.SideBuy, Kind: models.KindLimit, Quantity: 0.001, LimitPrice: 50000.037,
	})
	require.NoError(t, err)

	require.Len(t, port.submitted, 1)
	assert.InDelta(t, 50000.04, port.submitted[0].LimitPrice, 1e-9)
	assert.Equal(t, models.TifGTC, port.tifs[0])

	assert.False(t, out.Filled)
	assert.True(t, out.Adjusted)
	assert.InDelta(t, 50000.04, out.LimitPrice, 1e-9)
}

func TestExecute_LimitConstraintFetchFailure(t *testing.T) {
	port := &mockPort{consErr: errors.New("exchangeInfo down")}
	_, err := New(port).Execute(context.Background(), models.TradeIntent{
		Symbol: "BTCUSDT", Side: models.SideSell, Kind: models.KindLimit, Quantity: 0.001, LimitPrice: 123,
	})

	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, KindConstraintFetch, xerr.Kind)
	assert.Empty(t, port.submitted, "the attempt must be aborted before submission")
}
