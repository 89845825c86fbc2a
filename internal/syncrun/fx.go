package syncrun

import (
	"github.com/merchantiq/catalogsync/internal/syncguard"
	"go.uber.org/fx"
)

var Module = fx.Module("syncrun",
	fx.Provide(NewStatusStore),
	fx.Provide(func(g *syncguard.Guard) OverlapGuard { return g }),
	fx.Provide(New),
)
