package notification

import (
	"github.com/smallbiznis/covena/internal/notification/providers/email"
	"github.com/smallbiznis/covena/internal/notification/repository"
	"github.com/smallbiznis/covena/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	email.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
