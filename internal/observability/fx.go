package observability

import (
	"github.com/merchantiq/catalogsync/internal/config"
	"github.com/merchantiq/catalogsync/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Invoke(ensureSyncMetrics),
)

func ensureSyncMetrics(cfg config.Config) {
	metrics.SyncWithConfig(metrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	})
}
