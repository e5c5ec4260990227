package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"spot_bot/internal/history"
	"spot_bot/internal/modules/config"
	"spot_bot/pkg/db"
	"spot_bot/pkg/logger"
)

// Module provides the trade-event journal. Without DATABASE_DSN the bot
// runs with the no-op store and only keeps the file event log.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (history.Store, error) {
				if cfg.DB == "" {
					logger.Info("no DATABASE_DSN, trade journal disabled")
					return history.NewNop(), nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}
				if err = poolMaster.Ping(ctx); err != nil {
					return nil, err
				}

				manager := db.NewPgTxManager(poolMaster)
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						manager.Close()
						return nil
					},
				})
				return history.NewPg(manager), nil
			},
		),
	)
}
