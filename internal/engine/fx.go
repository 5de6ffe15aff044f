package engine

import (
	"github.com/smallbiznis/covena/internal/engine/service"
	"go.uber.org/fx"
)

var Module = fx.Module("engine.service",
	fx.Provide(service.New),
)
