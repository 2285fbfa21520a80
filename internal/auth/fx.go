package auth

import (
	"github.com/smallbiznis/invoicer/internal/auth/local"
	"github.com/smallbiznis/invoicer/internal/auth/repository"
	"github.com/smallbiznis/invoicer/internal/auth/service"
	"github.com/smallbiznis/invoicer/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
	local.Module,
)
