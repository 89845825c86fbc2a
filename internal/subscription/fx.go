package subscription

import (
	"github.com/merchantiq/catalogsync/internal/subscription/repository"
	"github.com/merchantiq/catalogsync/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewGate),
)
