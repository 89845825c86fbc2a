package tenant

import (
	"github.com/merchantiq/catalogsync/internal/tenant/repository"
	"github.com/merchantiq/catalogsync/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
