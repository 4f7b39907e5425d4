package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/config"
	invoicerepository "github.com/smallbiznis/tradieapp/internal/invoice/repository"
	"github.com/smallbiznis/tradieapp/internal/observability"
	quoterepository "github.com/smallbiznis/tradieapp/internal/quote/repository"
	"github.com/smallbiznis/tradieapp/internal/scheduler"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"go.uber.org/fx"
)

// The standalone sweeper. Run the API with SCHEDULER_ENABLED=false when this
// binary is deployed alongside it.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Repositories only, no HTTP surface.
		fx.Provide(quoterepository.Provide),
		fx.Provide(invoicerepository.Provide),

		scheduler.Module,
		fx.Decorate(func(cfg scheduler.Config) scheduler.Config {
			cfg.Enabled = true
			return cfg
		}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
