package strategy

import (
	"context"

	"spot_bot/internal/history"
	"spot_bot/internal/models"
	"spot_bot/pkg/logger"
)

// ManualMarket places an operator-initiated market order. It serializes
// through the same mutex as the auto loop and applies the fill to the
// tracker when the transition is valid; otherwise the order stands but
// position tracking is left untouched.
func (e *Engine) ManualMarket(ctx context.Context, side models.Side) (models.FillOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	intent := models.TradeIntent{Symbol: e.cfg.Symbol, Side: side, Kind: models.KindMarket, Quantity: e.cfg.Quantity}
	e.journal(ctx, history.Event{Kind: history.EventOrderAttempt, Symbol: e.cfg.Symbol, Side: string(side), OrderType: "MARKET", Quantity: intent.Quantity})

	out, err := e.exec.Execute(ctx, intent)
	if err != nil {
		e.journal(ctx, history.Event{Kind: history.EventOrderFailed, Symbol: e.cfg.Symbol, Side: string(side), Detail: err.Error()})
		return models.FillOutcome{}, err
	}
	e.journal(ctx, history.Event{Kind: history.EventOrderFilled, Symbol: e.cfg.Symbol, Side: string(side), OrderType: "MARKET", Price: out.Price, Quantity: intent.Quantity})

	switch side {
	case models.SideBuy:
		if err := e.pos.OnEntryFilled(out.Price); err != nil {
			logger.Info("manual buy filled @ %.4f, position already LONG — tracking unchanged", out.Price)
			return out, nil
		}
	case models.SideSell:
		pnl, err := e.pos.OnExitFilled(out.Price)
		if err != nil {
			logger.Info("manual sell filled @ %.4f, no tracked long — tracking unchanged", out.Price)
			return out, nil
		}
		e.journal(ctx, history.Event{Kind: history.EventRealizedPnL, Symbol: e.cfg.Symbol, Side: "SELL", Price: out.Price, Quantity: intent.Quantity, PnL: pnl})
	}

	// подтверждённый переход — значит и новая точка отсчёта
	e.ref = out.Price
	return out, nil
}

// ManualLimit places a GTC limit order at the desired price, clamped to the
// symbol constraints. Fire-and-forget: fill status is not polled and the
// tracker is not touched.
func (e *Engine) ManualLimit(ctx context.Context, side models.Side, desired float64) (models.FillOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	intent := models.TradeIntent{Symbol: e.cfg.Symbol, Side: side, Kind: models.KindLimit, Quantity: e.cfg.Quantity, LimitPrice: desired}
	e.journal(ctx, history.Event{Kind: history.EventOrderAttempt, Symbol: e.cfg.Symbol, Side: string(side), OrderType: "LIMIT", Price: desired, Quantity: intent.Quantity})

	out, err := e.exec.Execute(ctx, intent)
	if err != nil {
		e.journal(ctx, history.Event{Kind: history.EventOrderFailed, Symbol: e.cfg.Symbol, Side: string(side), Detail: err.Error()})
		return models.FillOutcome{}, err
	}
	if out.Adjusted {
		logger.Info("limit %s: requested %.8f, submitted %.8f", side, desired, out.LimitPrice)
	}
	e.journal(ctx, history.Event{Kind: history.EventOrderPlaced, Symbol: e.cfg.Symbol, Side: string(side), OrderType: "LIMIT", Price: out.LimitPrice, Quantity: intent.Quantity, Detail: "resting GTC"})
	return out, nil
}
