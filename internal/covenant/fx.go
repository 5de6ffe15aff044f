package covenant

import (
	"github.com/smallbiznis/covena/internal/covenant/repository"
	"github.com/smallbiznis/covena/internal/covenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("covenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
