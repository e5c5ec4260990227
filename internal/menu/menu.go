package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"spot_bot/internal/exchange"
	"spot_bot/internal/models"
	"spot_bot/internal/strategy"
	"spot_bot/pkg/logger"
)

// Streamer — live-поток цен для пункта watch.
type Streamer interface {
	StreamPrices(ctx context.Context, symbol string) <-chan exchange.PriceTick
}

// Menu is the thin operator dispatcher: every item maps to one core call.
type Menu struct {
	eng      *strategy.Engine
	port     exchange.Port
	streamer Streamer
	symbol   string
	quote    string // quote asset for balance, e.g. "USDT"
	base     string // base asset, e.g. "BTC"
	shutdown func()

	mu         sync.Mutex
	stopAuto   context.CancelFunc
	autoActive bool
}

func New(eng *strategy.Engine, port exchange.Port, streamer Streamer, symbol, base, quote string, shutdown func()) *Menu {
	return &Menu{
		eng:      eng,
		port:     port,
		streamer: streamer,
		symbol:   symbol,
		base:     base,
		quote:    quote,
		shutdown: shutdown,
	}
}

const prompt = `
--- %s ---
 1) market buy          5) status
 2) market sell         6) balance
 3) limit buy <price>   7) auto start
 4) limit sell <price>  8) auto stop
 9) watch price (enter to stop)
 0) exit
> `

// Run reads commands until EOF or "exit". Blocking; the caller owns the
// goroutine and the context.
func (m *Menu) Run(ctx context.Context, in io.Reader) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Printf(prompt, m.symbol)
		if !sc.Scan() {
			return
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		var arg string
		if len(fields) > 1 {
			arg = fields[1]
		}

		switch fields[0] {
		case "1", "buy":
			m.market(ctx, models.SideBuy)
		case "2", "sell":
			m.market(ctx, models.SideSell)
		case "3", "lbuy":
			m.limit(ctx, models.SideBuy, arg)
		case "4", "lsell":
			m.limit(ctx, models.SideSell, arg)
		case "5", "status":
			m.status()
		case "6", "balance":
			m.balance(ctx)
		case "7", "auto":
			m.autoStart(ctx)
		case "8", "stop":
			m.autoStop()
		case "9", "watch":
			m.watch(ctx, sc)
		case "0", "exit", "q":
			m.autoStop()
			fmt.Println("bye")
			if m.shutdown != nil {
				m.shutdown()
			}
			return
		default:
			fmt.Println("unknown command")
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (m *Menu) market(ctx context.Context, side models.Side) {
	out, err := m.eng.ManualMarket(ctx, side)
	if err != nil {
		fmt.Printf("❌ order failed: %v\n", err)
		return
	}
	fmt.Printf("✅ %s %s @ %.4f\n", side, m.symbol, out.Price)
}

func (m *Menu) limit(ctx context.Context, side models.Side, arg string) {
	desired, err := strconv.ParseFloat(arg, 64)
	if err != nil || desired <= 0 {
		fmt.Println("usage: lbuy|lsell <price>")
		return
	}
	out, err := m.eng.ManualLimit(ctx, side, desired)
	if err != nil {
		fmt.Printf("❌ order failed: %v\n", err)
		return
	}
	if out.Adjusted {
		fmt.Printf("ℹ️ price adjusted to %.8f\n", out.LimitPrice)
	}
	fmt.Printf("✅ %s LIMIT %s @ %.8f (GTC)\n", side, m.symbol, out.LimitPrice)
}

func (m *Menu) status() {
	s := m.eng.Snapshot()
	fmt.Printf("position: %s", s.State)
	if s.State == models.PositionLong {
		fmt.Printf(" | entry @ %.4f qty=%.6f", s.EntryPrice, s.Quantity)
	}
	fmt.Printf(" | realized pnl: %.4f\n", s.RealizedPnL)
}

func (m *Menu) balance(ctx context.Context) {
	for _, asset := range []string{m.quote, m.base} {
		v, err := m.port.GetBalance(ctx, asset)
		if err != nil {
			fmt.Printf("❌ balance %s: %v\n", asset, err)
			continue
		}
		fmt.Printf("💰 %s: %f\n", asset, v)
	}
}

func (m *Menu) autoStart(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.autoActive {
		fmt.Println("auto strategy already running")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.stopAuto = cancel
	m.autoActive = true
	go func() {
		if err := m.eng.Run(runCtx); err != nil {
			logger.Error("strategy run: %v", err)
			fmt.Printf("❌ strategy: %v\n", err)
		}
		m.mu.Lock()
		m.autoActive = false
		m.mu.Unlock()
	}()
	fmt.Println("▶️ auto strategy started")
}

func (m *Menu) autoStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopAuto != nil {
		m.stopAuto()
		m.stopAuto = nil
	}
}

func (m *Menu) watch(ctx context.Context, sc *bufio.Scanner) {
	if m.streamer == nil {
		fmt.Println("live stream unavailable")
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticks := m.streamer.StreamPrices(watchCtx, m.symbol)
	go func() {
		for t := range ticks {
			fmt.Printf("[WS] %s %.2f\n", t.Symbol, t.Price)
		}
	}()
	sc.Scan() // любой ввод завершает watch
}
