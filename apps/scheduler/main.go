// The scheduler binary runs timer-driven syncs without the admin HTTP
// surface. Deploy it when API and sync duty are split across processes;
// the overlap guard keeps the two from double-running a tenant.
package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/merchantiq/catalogsync/internal/catalog"
	"github.com/merchantiq/catalogsync/internal/clock"
	"github.com/merchantiq/catalogsync/internal/config"
	"github.com/merchantiq/catalogsync/internal/fanout"
	"github.com/merchantiq/catalogsync/internal/logger"
	"github.com/merchantiq/catalogsync/internal/migration"
	"github.com/merchantiq/catalogsync/internal/observability"
	"github.com/merchantiq/catalogsync/internal/plan"
	"github.com/merchantiq/catalogsync/internal/scheduler"
	"github.com/merchantiq/catalogsync/internal/subscription"
	"github.com/merchantiq/catalogsync/internal/syncguard"
	"github.com/merchantiq/catalogsync/internal/syncrun"
	"github.com/merchantiq/catalogsync/internal/tenant"
	"github.com/merchantiq/catalogsync/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		plan.Module,
		subscription.Module,
		tenant.Module,
		catalog.Module,
		fanout.Module,
		syncguard.Module,
		syncrun.Module,
		scheduler.Module,

		// No server module.
		fx.Invoke(scheduler.Start),
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
