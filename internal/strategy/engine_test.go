package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot_bot/internal/exchange"
	"spot_bot/internal/executor"
	"spot_bot/internal/models"
	"spot_bot/internal/notify"
	"spot_bot/internal/position"
)

// scriptPort returns quotes (or errors) in sequence and confirms every
// submitted order at the last quote.
type scriptPort struct {
	quotes []any // float64 or error, consumed per GetPrice call
	last   float64

	submitErr error
	submitted []models.TradeIntent
}

var _ exchange.Port = (*scriptPort)(nil)

func (p *scriptPort) Ping(context.Context) error                          { return nil }
func (p *scriptPort) GetBalance(context.Context, string) (float64, error) { return 0, nil }

func (p *scriptPort) GetPrice(context.Context, string) (float64, error) {
	if len(p.quotes) == 0 {
		return p.last, nil
	}
	next := p.quotes[0]
	p.quotes = p.quotes[1:]
	if err, ok := next.(error); ok {
		return 0, err
	}
	p.last = next.(float64)
	return p.last, nil
}

func (p *scriptPort) GetSymbolConstraints(context.Context, string) (models.SymbolConstraints, error) {
	return models.SymbolConstraints{TickSize: 0.01, MinPrice: 1, MaxPrice: 1000000}, nil
}

func (p *scriptPort) SubmitOrder(_ context.Context, intent models.TradeIntent, _ models.TimeInForce) (models.OrderReceipt, error) {
	if p.submitErr != nil {
		return models.OrderReceipt{}, p.submitErr
	}
	p.submitted = append(p.submitted, intent)
	return models.OrderReceipt{OrderID: int64(len(p.submitted)), Status: "FILLED", FillPrice: p.last}, nil
}

func newTestEngine(port *scriptPort, qty float64) (*Engine, *position.Tracker) {
	tracker := position.NewTracker(qty)
	eng := New(Config{
		Symbol:   "BTCUSDT",
		Quantity: qty,
		EntryPct: 0.1,
		ExitPct:  0.1,
	}, port, executor.New(port), tracker, notify.NewStdout(), nil)
	return eng, tracker
}

func TestEngine_EntryThenExitScenario(t *testing.T) {
	// ref 100: 99.89 is -0.11% -> buy; from the new ref 99.89,
	// 100.00 is +0.11% -> sell; pnl = (100.00-99.89)*qty.
	port := &scriptPort{}
	eng, tracker := newTestEngine(port, 0.5)
	eng.ref = 100

	// each tick consumes two quotes: the engine's own and the executor's
	port.quotes = []any{99.89, 99.89}
	eng.tick(context.Background())
	snap := tracker.Snapshot()
	require.Equal(t, models.PositionLong, snap.State)
	assert.Equal(t, 99.89, snap.EntryPrice)
	assert.Equal(t, 99.89, eng.ref, "reference resets after entry")

	port.quotes = []any{100.00, 100.00}
	eng.tick(context.Background())
	snap = tracker.Snapshot()
	require.Equal(t, models.PositionFlat, snap.State)
	assert.InDelta(t, (100.00-99.89)*0.5, snap.RealizedPnL, 1e-9)
	assert.Equal(t, 100.00, eng.ref, "reference resets after exit")

	require.Len(t, port.submitted, 2)
	assert.Equal(t, models.SideBuy, port.submitted[0].Side)
	assert.Equal(t, models.SideSell, port.submitted[1].Side)
}

func TestEngine_SmallMoveIsNoop(t *testing.T) {
	port := &scriptPort{quotes: []any{99.95}} // -0.05%, under the 0.1% threshold
	eng, tracker := newTestEngine(port, 1)
	eng.ref = 100

	eng.tick(context.Background())

	assert.Equal(t, models.PositionFlat, tracker.Snapshot().State)
	assert.Equal(t, 100.0, eng.ref)
	assert.Empty(t, port.submitted)
}

func TestEngine_ExactThresholdTriggers(t *testing.T) {
	// a move of exactly the threshold magnitude must trigger (<=, not <)
	port := &scriptPort{quotes: []any{199.0, 199.0}} // exactly -0.5% from 200
	tracker := position.NewTracker(1)
	eng := New(Config{
		Symbol:   "BTCUSDT",
		Quantity: 1,
		EntryPct: 0.5,
		ExitPct:  0.5,
	}, port, executor.New(port), tracker, notify.NewStdout(), nil)
	eng.ref = 200

	eng.tick(context.Background())

	assert.Equal(t, models.PositionLong, tracker.Snapshot().State)
}

func TestEngine_UnreadablePriceSkipsTick(t *testing.T) {
	down := errors.New("connection reset")
	port := &scriptPort{quotes: []any{down, down, down}}
	eng, tracker := newTestEngine(port, 1)
	eng.ref = 100

	for i := 0; i < 3; i++ {
		eng.tick(context.Background())
	}

	snap := tracker.Snapshot()
	assert.Equal(t, models.PositionFlat, snap.State)
	assert.Zero(t, snap.RealizedPnL)
	assert.Equal(t, 100.0, eng.ref, "reference must survive unreadable ticks")
	assert.Empty(t, port.submitted)
}

func TestEngine_FailedSubmitLeavesStateAndRef(t *testing.T) {
	port := &scriptPort{quotes: []any{99.5, 99.5}, submitErr: errors.New("insufficient balance")}
	eng, tracker := newTestEngine(port, 1)
	eng.ref = 100

	eng.tick(context.Background())

	assert.Equal(t, models.PositionFlat, tracker.Snapshot().State)
	assert.Equal(t, 100.0, eng.ref, "reference must not move on a failed order")
}

func TestEngine_FailedExitKeepsLong(t *testing.T) {
	port := &scriptPort{}
	eng, tracker := newTestEngine(port, 1)
	require.NoError(t, tracker.OnEntryFilled(100))
	eng.ref = 100

	port.quotes = []any{100.5, 100.5}
	port.submitErr = errors.New("rejected")
	eng.tick(context.Background())

	snap := tracker.Snapshot()
	assert.Equal(t, models.PositionLong, snap.State)
	assert.Zero(t, snap.RealizedPnL)
	assert.Equal(t, 100.0, eng.ref)
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	port := &scriptPort{last: 100}
	tracker := position.NewTracker(1)
	eng := New(Config{
		Symbol:       "BTCUSDT",
		Quantity:     1,
		EntryPct:     0.1,
		ExitPct:      0.1,
		PollInterval: 5 * time.Millisecond,
	}, port, executor.New(port), tracker, notify.NewStdout(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop on cancellation")
	}
}

func TestEngine_RunFailsWithoutInitialPrice(t *testing.T) {
	port := &scriptPort{quotes: []any{errors.New("dns failure")}}
	eng, _ := newTestEngine(port, 1)

	err := eng.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial price")
}

func TestEngine_ManualMarketRoundTrip(t *testing.T) {
	port := &scriptPort{last: 250}
	eng, tracker := newTestEngine(port, 2)

	out, err := eng.ManualMarket(context.Background(), models.SideBuy)
	require.NoError(t, err)
	assert.True(t, out.Filled)
	assert.Equal(t, models.PositionLong, tracker.Snapshot().State)

	port.last = 260
	_, err = eng.ManualMarket(context.Background(), models.SideSell)
	require.NoError(t, err)

	snap := tracker.Snapshot()
	assert.Equal(t, models.PositionFlat, snap.State)
	assert.InDelta(t, (260.0-250.0)*2, snap.RealizedPnL, 1e-9)
}

func TestEngine_ManualSellWhileFlatDoesNotTrack(t *testing.T) {
	port := &scriptPort{last: 250}
	eng, tracker := newTestEngine(port, 1)

	_, err := eng.ManualMarket(context.Background(), models.SideSell)
	require.NoError(t, err)

	snap := tracker.Snapshot()
	assert.Equal(t, models.PositionFlat, snap.State)
	assert.Zero(t, snap.RealizedPnL)
}

func TestEngine_ManualLimitClamps(t *testing.T) {
	port := &scriptPort{last: 50000}
	eng, _ := newTestEngine(port, 1)

	out, err := eng.ManualLimit(context.Background(), models.SideBuy, 50000.037)
	require.NoError(t, err)
	assert.True(t, out.Adjusted)
	assert.InDelta(t, 50000.04, out.LimitPrice, 1e-9)
}
