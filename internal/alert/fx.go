package alert

import (
	"github.com/smallbiznis/covena/internal/alert/repository"
	"github.com/smallbiznis/covena/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideConfigRepository),
	fx.Provide(service.New),
)
