package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/fx"

	"spot_bot/internal/exchange"
	"spot_bot/internal/executor"
	"spot_bot/internal/history"
	"spot_bot/internal/menu"
	"spot_bot/internal/modules/config"
	"spot_bot/internal/modules/health"
	healthsvc "spot_bot/internal/modules/health/service"
	"spot_bot/internal/modules/postgres"
	"spot_bot/internal/notify"
	"spot_bot/internal/position"
	"spot_bot/internal/strategy"
	"spot_bot/pkg/logger"
	"spot_bot/pkg/tracing"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		fx.Provide(
			newExchangeClient,
			func(c *exchange.Client) exchange.Port { return c },
			func(cfg *config.Config) *position.Tracker { return position.NewTracker(cfg.Quantity) },
			func(port exchange.Port) *executor.Executor { return executor.New(port) },
			newNotifier,
			newEngine,
			func(cfg *config.Config) health.Config { return health.Config{Addr: cfg.Service.HealthAddr} },
			newMenu,
		),
		health.Module(),
		fx.Invoke(initLogger),
		fx.Invoke(run),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}

func initLogger(cfg *config.Config) error {
	logger.SetServiceName("spot_bot")
	return logger.Init(cfg.Service.LogFile)
}

func newExchangeClient(cfg *config.Config) *exchange.Client {
	c := exchange.NewClient(cfg.Exchange.BaseURL, cfg.CallTimeout)
	c.SetCreds(cfg.APIKey, cfg.APISecret)
	return c
}

// Notifier: если TELEGRAM_* нет — используем stdout.
func newNotifier(cfg *config.Config, tracker *position.Tracker) notify.Notifier {
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, tracker.Snapshot); err == nil {
			return tg
		}
	}
	return notify.NewStdout()
}

func newEngine(
	cfg *config.Config,
	port exchange.Port,
	exec *executor.Executor,
	tracker *position.Tracker,
	n notify.Notifier,
	hist history.Store,
) *strategy.Engine {
	return strategy.New(strategy.Config{
		Symbol:          cfg.Symbol,
		Quantity:        cfg.Quantity,
		EntryPct:        cfg.EntryThresholdPct,
		ExitPct:         cfg.ExitThresholdPct,
		PollInterval:    cfg.PollInterval,
		CallTimeout:     cfg.CallTimeout,
		ConfirmRequired: cfg.ConfirmRequired,
		ConfirmTimeout:  cfg.ConfirmTimeout,
	}, port, exec, tracker, n, hist)
}

func newMenu(cfg *config.Config, eng *strategy.Engine, client *exchange.Client, sd fx.Shutdowner) *menu.Menu {
	return menu.New(eng, client, client, cfg.Symbol, cfg.BaseAsset, cfg.QuoteAsset, func() {
		_ = sd.Shutdown()
	})
}

func run(
	lc fx.Lifecycle,
	ctx context.Context,
	cfg *config.Config,
	client *exchange.Client,
	eng *strategy.Engine,
	n notify.Notifier,
	m *menu.Menu,
	state *healthsvc.State,
	hist history.Store,
) {
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if cfg.Jaeger.Host != "" {
				tracing.SetServiceName("spot_bot")
				if _, _, err := tracing.InitTracer(tracing.Config{Host: cfg.Jaeger.Host, Port: cfg.Jaeger.Port}); err != nil {
					logger.Error("tracing init: %v", err)
				}
			}

			// стартовая проверка связи — единственный фатальный сетевой сбой
			if err := client.Ping(startCtx); err != nil {
				logger.Error("connection failed: %v", err)
				_ = hist.Append(ctx, history.Event{Kind: history.EventConnection, Detail: err.Error()})
				return fmt.Errorf("exchange ping: %w", err)
			}
			logger.Info("connected to %s", cfg.Exchange.BaseURL)
			_ = hist.Append(ctx, history.Event{Kind: history.EventConnection, Detail: "connected"})
			state.SetExchangeUp(true)
			state.SetReady(true)

			for _, asset := range []string{cfg.QuoteAsset, cfg.BaseAsset} {
				if v, err := client.GetBalance(startCtx, asset); err == nil {
					logger.Info("starting balance %s: %f", asset, v)
				} else {
					logger.Error("balance %s: %v", asset, err)
				}
			}

			if tg, ok := n.(*notify.Telegram); ok {
				if err := tg.Start(ctx); err != nil {
					return err
				}
			}

			eng.SetTickObserver(state)
			go m.Run(ctx, os.Stdin)
			logger.Info("menu started, symbol=%s qty=%v", cfg.Symbol, cfg.Quantity)
			return nil
		},
		OnStop: func(context.Context) error {
			if tg, ok := n.(*notify.Telegram); ok {
				tg.Stop()
			}
			logger.Info("stopping...")
			return nil
		},
	})
}
