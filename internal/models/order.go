package models

import "time"

// Side — "BUY"/"SELL" как на бирже.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderKind string

const (
	KindMarket OrderKind = "MARKET"
	KindLimit  OrderKind = "LIMIT"
)

type TimeInForce string

const (
	// TifGTC — good-till-cancelled, единственный режим для лимиток.
	TifGTC TimeInForce = "GTC"
)

// TradeIntent is built per decision and handed to the executor.
// LimitPrice is meaningful only for KindLimit.
type TradeIntent struct {
	Symbol     string
	Side       Side
	Kind       OrderKind
	Quantity   float64
	LimitPrice float64
}

// OrderReceipt is the exchange confirmation. FillPrice is zero when the
// exchange did not report fills (e.g. a resting limit order).
type OrderReceipt struct {
	OrderID   int64
	Status    string
	FillPrice float64
	FillQty   float64
	Created   time.Time
}

// Filled reports whether the exchange confirmed execution.
func (r OrderReceipt) Filled() bool {
	return r.Status == "FILLED" || r.Status == "PARTIALLY_FILLED"
}

// FillOutcome is what the executor reports back to the strategy.
type FillOutcome struct {
	Filled bool
	// Price is the receipt fill price when the exchange reported one,
	// otherwise the pre-submission quote.
	Price float64
	// LimitPrice is the clamped price actually submitted (limit orders).
	LimitPrice float64
	// Adjusted is set when the clamp changed the requested limit price.
	Adjusted bool
}
