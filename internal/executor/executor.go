package executor

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"

	"spot_bot/internal/exchange"
	"spot_bot/internal/models"
	"spot_bot/pkg/logger"
)

type ErrorKind string

const (
	// KindConstraintFetch — не смогли получить tickSize/границы цены,
	// лимитная заявка не отправлялась.
	KindConstraintFetch ErrorKind = "constraint_fetch"
	// KindExecution — биржа отклонила заявку или запрос не прошёл.
	KindExecution ErrorKind = "execution"
)

// Error carries enough context to report a failed attempt once: operation,
// side, quantity, cause. The strategy never retries it automatically.
type Error struct {
	Kind   ErrorKind
	Intent models.TradeIntent
	Cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("order %s %s %s qty=%v: %s: %v",
		e.Intent.Kind, e.Intent.Side, e.Intent.Symbol, e.Intent.Quantity, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Executor turns a trade intent into a Port call and interprets the result.
// It never panics and leaves retry policy to the caller.
type Executor struct {
	port exchange.Port
}

func New(port exchange.Port) *Executor {
	return &Executor{port: port}
}

// Execute submits the intent. Market orders report the receipt fill price
// when the exchange returned one, else the pre-submission quote. Limit
// orders are clamped to the symbol constraints and rest GTC; they are
// fire-and-forget, the outcome carries the price actually submitted.
func (x *Executor) Execute(ctx context.Context, intent models.TradeIntent) (models.FillOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "order.execute")
	defer span.Finish()
	span.SetTag("symbol", intent.Symbol)
	span.SetTag("side", string(intent.Side))
	span.SetTag("kind", string(intent.Kind))

	switch intent.Kind {
	case models.KindLimit:
		return x.executeLimit(ctx, intent)
	default:
		return x.executeMarket(ctx, intent)
	}
}

func (x *Executor) executeMarket(ctx context.Context, intent models.TradeIntent) (models.FillOutcome, error) {
	quote, err := x.port.GetPrice(ctx, intent.Symbol)
	if err != nil {
		return models.FillOutcome{}, &Error{Kind: KindExecution, Intent: intent, Cause: fmt.Errorf("quote: %w", err)}
	}

	rcpt, err := x.port.SubmitOrder(ctx, intent, "")
	if err != nil {
		return models.FillOutcome{}, &Error{Kind: KindExecution, Intent: intent, Cause: err}
	}
	if !rcpt.Filled() {
		return models.FillOutcome{}, &Error{Kind: KindExecution, Intent: intent,
			Cause: fmt.Errorf("unexpected status %q for market order %d", rcpt.Status, rcpt.OrderID)}
	}

	px := rcpt.FillPrice
	if px <= 0 {
		// биржа не вернула fills — остаётся котировка перед отправкой
		px = quote
	}
	return models.FillOutcome{Filled: true, Price: px}, nil
}

func (x *Executor) executeLimit(ctx context.Context, intent models.TradeIntent) (models.FillOutcome, error) {
	cons, err := x.port.GetSymbolConstraints(ctx, intent.Symbol)
	if err != nil {
		return models.FillOutcome{}, &Error{Kind: KindConstraintFetch, Intent: intent, Cause: err}
	}

	clamped, adjusted := cons.Clamp(intent.LimitPrice)
	if adjusted {
		logger.Info("limit price %v adjusted to %v (tick=%v)", intent.LimitPrice, clamped, cons.TickSize)
	}
	intent.LimitPrice = clamped

	rcpt, err := x.port.SubmitOrder(ctx, intent, models.TifGTC)
	if err != nil {
		return models.FillOutcome{}, &Error{Kind: KindExecution, Intent: intent, Cause: err}
	}

	return models.FillOutcome{
		Filled:     rcpt.Filled(),
		Price:      rcpt.FillPrice,
		LimitPrice: clamped,
		Adjusted:   adjusted,
	}, nil
}
