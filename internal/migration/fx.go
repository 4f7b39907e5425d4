package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/config"
	"github.com/smallbiznis/tradieapp/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		if err := Migrate(conn); err != nil {
			return err
		}
		log.Info("database schema up to date")

		if cfg.BootstrapDemo && !cfg.IsProduction() {
			return seed.EnsureDemo(context.Background(), conn, node, log)
		}
		return nil
	}),
)
