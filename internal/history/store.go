package history

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"spot_bot/pkg/db"
)

type EventKind string

const (
	EventOrderAttempt EventKind = "order_attempt"
	EventOrderPlaced  EventKind = "order_placed"
	EventOrderFilled  EventKind = "order_filled"
	EventOrderFailed  EventKind = "order_failed"
	EventRealizedPnL  EventKind = "realized_pnl"
	EventConnection   EventKind = "connection"
)

// Event — одна строка торгового журнала. Payload уходит в jsonb.
type Event struct {
	Kind      EventKind `json:"kind"`
	Symbol    string    `json:"symbol,omitempty"`
	Side      string    `json:"side,omitempty"`
	OrderType string    `json:"order_type,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Quantity  float64   `json:"quantity,omitempty"`
	PnL       float64   `json:"pnl,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Store is an append-only trade-event journal. The bot only writes; reads
// belong to external tooling.
type Store interface {
	Append(ctx context.Context, ev Event) error
}

// Pg пишет журнал в Postgres через общий TxManager.
type Pg struct {
	tm db.TxManager
}

func NewPg(tm db.TxManager) *Pg {
	return &Pg{tm: tm}
}

const insertEvent = `INSERT INTO trade_events (kind, at, payload) VALUES ($1, $2, $3)`

func (s *Pg) Append(ctx context.Context, ev Event) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("history.Append: %w", err)
		}
	}()

	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	var data []byte
	data, err = sonic.Marshal(ev)
	if err != nil {
		return err
	}
	return s.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx, insertEvent, string(ev.Kind), ev.At, data)
		return execErr
	})
}

// Nop — журнал выключен (DSN не задан).
type Nop struct{}

func NewNop() *Nop { return &Nop{} }

func (*Nop) Append(context.Context, Event) error { return nil }
