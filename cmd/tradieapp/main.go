package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/audit"
	"github.com/smallbiznis/tradieapp/internal/auth"
	"github.com/smallbiznis/tradieapp/internal/authorization"
	"github.com/smallbiznis/tradieapp/internal/client"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/config"
	"github.com/smallbiznis/tradieapp/internal/invoice"
	"github.com/smallbiznis/tradieapp/internal/job"
	"github.com/smallbiznis/tradieapp/internal/migration"
	"github.com/smallbiznis/tradieapp/internal/observability"
	"github.com/smallbiznis/tradieapp/internal/organization"
	"github.com/smallbiznis/tradieapp/internal/payment"
	"github.com/smallbiznis/tradieapp/internal/providers/email"
	"github.com/smallbiznis/tradieapp/internal/publictoken"
	"github.com/smallbiznis/tradieapp/internal/quote"
	"github.com/smallbiznis/tradieapp/internal/ratelimit"
	"github.com/smallbiznis/tradieapp/internal/scheduler"
	"github.com/smallbiznis/tradieapp/internal/server"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		email.Module,

		// Functional Domains
		audit.Module,
		auth.Module,
		authorization.Module,
		organization.Module,
		client.Module,
		job.Module,
		publictoken.Module,
		quote.Module,
		invoice.Module,
		payment.Module,
		scheduler.Module,

		ratelimit.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
