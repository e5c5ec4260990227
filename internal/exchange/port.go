package exchange

import (
	"context"

	"spot_bot/internal/models"
)

// Port is everything the core needs from an exchange. The Binance client
// implements it; tests substitute their own.
type Port interface {
	Ping(ctx context.Context) error
	GetBalance(ctx context.Context, asset string) (float64, error)
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetSymbolConstraints(ctx context.Context, symbol string) (models.SymbolConstraints, error)
	SubmitOrder(ctx context.Context, intent models.TradeIntent, tif models.TimeInForce) (models.OrderReceipt, error)
}
