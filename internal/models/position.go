package models

import "time"

type PositionState string

const (
	PositionFlat PositionState = "FLAT"
	PositionLong PositionState = "LONG"
)

// PositionSnapshot — read-only view of the tracker for status output.
// EntryPrice is meaningful only while State == PositionLong.
type PositionSnapshot struct {
	State       PositionState
	EntryPrice  float64
	Quantity    float64
	RealizedPnL float64
	Updated     time.Time
}
