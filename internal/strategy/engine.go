package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spot_bot/internal/exchange"
	"spot_bot/internal/executor"
	"spot_bot/internal/history"
	"spot_bot/internal/models"
	"spot_bot/internal/notify"
	"spot_bot/internal/position"
	"spot_bot/pkg/logger"
)

type Config struct {
	Symbol   string
	Quantity float64

	// Пороги в процентах: вход при просадке на EntryPct, выход при росте на ExitPct.
	EntryPct float64
	ExitPct  float64

	PollInterval time.Duration
	CallTimeout  time.Duration

	ConfirmRequired bool
	ConfirmTimeout  time.Duration
}

// TickObserver is fed on every successful tick; the health state implements it.
type TickObserver interface {
	TouchTick(t time.Time)
}

// Engine — the flat→long→flat state machine around the polling loop.
// One logical thread: the loop is sequential, manual commands serialize
// through the same mutex, so the tracker and reference price have a single
// mutation path.
type Engine struct {
	cfg  Config
	port exchange.Port
	exec *executor.Executor
	pos  *position.Tracker
	n    notify.Notifier
	hist history.Store
	obs  TickObserver

	mu  sync.Mutex
	ref float64
}

func New(cfg Config, port exchange.Port, exec *executor.Executor, pos *position.Tracker, n notify.Notifier, hist history.Store) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Engine{
		cfg:  cfg,
		port: port,
		exec: exec,
		pos:  pos,
		n:    n,
		hist: hist,
	}
}

// SetTickObserver wires the health state; optional.
func (e *Engine) SetTickObserver(obs TickObserver) { e.obs = obs }

func (e *Engine) Snapshot() models.PositionSnapshot { return e.pos.Snapshot() }

// Run polls until ctx is cancelled. The reference price starts from the
// first successfully observed quote; if even that fails the run is aborted
// as a startup failure. A Long left open at cancellation stays open.
func (e *Engine) Run(ctx context.Context) error {
	start, err := e.getPrice(ctx)
	if err != nil {
		return fmt.Errorf("initial price for %s: %w", e.cfg.Symbol, err)
	}
	e.mu.Lock()
	e.ref = start
	e.mu.Unlock()

	logger.Info("strategy started: %s ref=%.4f entry=-%.3f%% exit=+%.3f%% every %s",
		e.cfg.Symbol, start, e.cfg.EntryPct, e.cfg.ExitPct, e.cfg.PollInterval)
	e.n.Sendf("▶️ Стратегия запущена: %s, вход -%.3f%%, выход +%.3f%%", e.cfg.Symbol, e.cfg.EntryPct, e.cfg.ExitPct)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			snap := e.pos.Snapshot()
			if snap.State == models.PositionLong {
				logger.Info("strategy stopped with open long @ %.4f, left as is", snap.EntryPrice)
				e.n.Sendf("🛑 Стратегия остановлена, позиция LONG @ %.4f осталась открытой", snap.EntryPrice)
			} else {
				logger.Info("strategy stopped")
				e.n.Send("🛑 Стратегия остановлена")
			}
			return nil
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick — один проход таблицы переходов. Любой сбой внутри тика
// логируется и не роняет цикл.
func (e *Engine) tick(ctx context.Context) {
	price, err := e.getPrice(ctx)
	if err != nil {
		// цена недоступна: тик пропускаем целиком, ref не трогаем
		logger.Error("price unavailable, tick skipped: %v", err)
		return
	}
	if e.obs != nil {
		e.obs.TouchTick(time.Now())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.pos.Snapshot()
	changePct := (price - e.ref) / e.ref * 100
	logger.Info("[TICK] %s price=%.2f change=%.4f%% pnl=%.4f", e.cfg.Symbol, price, changePct, snap.RealizedPnL)

	switch snap.State {
	case models.PositionFlat:
		if changePct <= -e.cfg.EntryPct {
			e.tryEnter(ctx, price, changePct)
		}
	case models.PositionLong:
		if changePct >= e.cfg.ExitPct {
			e.tryExit(ctx, price, changePct)
		}
	}
}

// tryEnter держит e.mu.
func (e *Engine) tryEnter(ctx context.Context, price, changePct float64) {
	if e.cfg.ConfirmRequired {
		prompt := fmt.Sprintf("🔔 [%s] вход BUY @ %.4f (%.4f%%). Войти?", e.cfg.Symbol, price, changePct)
		if !e.n.Confirm(ctx, prompt, e.cfg.ConfirmTimeout) {
			logger.Info("entry declined by operator, reference kept at %.4f", e.ref)
			return
		}
	}

	intent := models.TradeIntent{Symbol: e.cfg.Symbol, Side: models.SideBuy, Kind: models.KindMarket, Quantity: e.cfg.Quantity}
	e.journal(ctx, history.Event{Kind: history.EventOrderAttempt, Symbol: e.cfg.Symbol, Side: string(intent.Side), OrderType: string(intent.Kind), Price: price, Quantity: intent.Quantity})

	out, err := e.exec.Execute(ctx, intent)
	if err != nil {
		// заявка не прошла: состояние и ref не меняем, цикл живёт дальше
		logger.Error("entry failed: %v", err)
		e.n.Sendf("❗️ [%s] Вход не выполнен: %v", e.cfg.Symbol, err)
		e.journal(ctx, history.Event{Kind: history.EventOrderFailed, Symbol: e.cfg.Symbol, Side: "BUY", Detail: err.Error()})
		return
	}
	if err := e.pos.OnEntryFilled(out.Price); err != nil {
		logger.Error("entry fill not applied: %v", err)
		return
	}

	e.ref = price
	logger.Info("bought %.6f %s @ %.4f, new reference %.4f", e.cfg.Quantity, e.cfg.Symbol, out.Price, price)
	e.n.Sendf("✅ BUY %.6f %s @ %.4f", e.cfg.Quantity, e.cfg.Symbol, out.Price)
	e.journal(ctx, history.Event{Kind: history.EventOrderFilled, Symbol: e.cfg.Symbol, Side: "BUY", OrderType: "MARKET", Price: out.Price, Quantity: e.cfg.Quantity})
}

// tryExit держит e.mu.
func (e *Engine) tryExit(ctx context.Context, price, changePct float64) {
	intent := models.TradeIntent{Symbol: e.cfg.Symbol, Side: models.SideSell, Kind: models.KindMarket, Quantity: e.cfg.Quantity}
	e.journal(ctx, history.Event{Kind: history.EventOrderAttempt, Symbol: e.cfg.Symbol, Side: string(intent.Side), OrderType: string(intent.Kind), Price: price, Quantity: intent.Quantity})

	out, err := e.exec.Execute(ctx, intent)
	if err != nil {
		logger.Error("exit failed: %v", err)
		e.n.Sendf("❗️ [%s] Выход не выполнен: %v", e.cfg.Symbol, err)
		e.journal(ctx, history.Event{Kind: history.EventOrderFailed, Symbol: e.cfg.Symbol, Side: "SELL", Detail: err.Error()})
		return
	}
	pnl, err := e.pos.OnExitFilled(out.Price)
	if err != nil {
		logger.Error("exit fill not applied: %v", err)
		return
	}

	e.ref = price
	total := e.pos.Snapshot().RealizedPnL
	logger.Info("sold %.6f %s @ %.4f, pnl=%.4f total=%.4f", e.cfg.Quantity, e.cfg.Symbol, out.Price, pnl, total)
	e.n.Sendf("💰 SELL %.6f %s @ %.4f | trade pnl %.4f | total %.4f", e.cfg.Quantity, e.cfg.Symbol, out.Price, pnl, total)
	e.journal(ctx, history.Event{Kind: history.EventRealizedPnL, Symbol: e.cfg.Symbol, Side: "SELL", Price: out.Price, Quantity: e.cfg.Quantity, PnL: pnl})
}

func (e *Engine) getPrice(ctx context.Context) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.port.GetPrice(callCtx, e.cfg.Symbol)
}

func (e *Engine) journal(ctx context.Context, ev history.Event) {
	if e.hist == nil {
		return
	}
	if err := e.hist.Append(ctx, ev); err != nil {
		logger.Error("journal write: %v", err)
	}
}
