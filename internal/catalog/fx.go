package catalog

import (
	"github.com/merchantiq/catalogsync/internal/catalog/repository"
	"github.com/merchantiq/catalogsync/internal/catalog/source"
	"github.com/merchantiq/catalogsync/internal/catalog/transform"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.Provide),
	fx.Provide(source.New),
	fx.Provide(transform.New),
)
