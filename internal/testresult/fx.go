package testresult

import (
	"github.com/smallbiznis/covena/internal/testresult/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("testresult.store",
	fx.Provide(repository.Provide),
)
