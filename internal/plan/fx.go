package plan

import (
	"github.com/merchantiq/catalogsync/internal/plan/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("plan",
	fx.Provide(repository.Provide),
)
