package position

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"spot_bot/internal/models"
)

// ErrInvalidTransition means entry/exit was reported in a state that cannot
// accept it. The strategy gates transitions, so hitting this is a defect.
var ErrInvalidTransition = errors.New("invalid position transition")

// Tracker owns the position state, the entry price and the running realized
// PnL. Quantity is fixed for the run. The mutex is the single mutation path
// shared by the auto loop and manual commands.
type Tracker struct {
	mu sync.Mutex

	state    models.PositionState
	entry    float64
	quantity float64
	realized float64
	updated  time.Time
}

func NewTracker(quantity float64) *Tracker {
	return &Tracker{
		state:    models.PositionFlat,
		quantity: quantity,
		updated:  time.Now(),
	}
}

// OnEntryFilled moves Flat -> Long at the given fill price.
func (t *Tracker) OnEntryFilled(fillPrice float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != models.PositionFlat {
		return fmt.Errorf("entry while %s: %w", t.state, ErrInvalidTransition)
	}
	t.state = models.PositionLong
	t.entry = fillPrice
	t.updated = time.Now()
	return nil
}

// OnExitFilled moves Long -> Flat, realizes (fill-entry)*qty into the
// running PnL and returns the realized amount.
func (t *Tracker) OnExitFilled(fillPrice float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != models.PositionLong {
		return 0, fmt.Errorf("exit while %s: %w", t.state, ErrInvalidTransition)
	}
	pnl := (fillPrice - t.entry) * t.quantity
	t.realized += pnl
	t.state = models.PositionFlat
	t.entry = 0
	t.updated = time.Now()
	return pnl, nil
}

func (t *Tracker) Snapshot() models.PositionSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return models.PositionSnapshot{
		State:       t.state,
		EntryPrice:  t.entry,
		Quantity:    t.quantity,
		RealizedPnL: t.realized,
		Updated:     t.updated,
	}
}
