package ratio

import (
	"github.com/smallbiznis/covena/internal/ratio/repository"
	"github.com/smallbiznis/covena/internal/ratio/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratio.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
