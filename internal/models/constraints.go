package models

import "math"

// SymbolConstraints mirror the exchange PRICE_FILTER for a symbol:
// any accepted price is a multiple of TickSize within [MinPrice, MaxPrice].
type SymbolConstraints struct {
	TickSize float64
	MinPrice float64
	MaxPrice float64
}

// Clamp maps a desired limit price to an exchange-valid one: round to the
// nearest tick (half away from zero), then clip into [MinPrice, MaxPrice].
// The second result reports whether the price was changed.
func (c SymbolConstraints) Clamp(desired float64) (float64, bool) {
	px := desired
	if c.TickSize > 0 {
		px = math.Round(px/c.TickSize) * c.TickSize
	}
	if px < c.MinPrice {
		px = c.MinPrice
	}
	if px > c.MaxPrice {
		px = c.MaxPrice
	}
	return px, px != desired
}
