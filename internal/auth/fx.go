package auth

import (
	"github.com/smallbiznis/tradieapp/internal/auth/authenticator"
	"github.com/smallbiznis/tradieapp/internal/auth/repository"
	"github.com/smallbiznis/tradieapp/internal/auth/service"
	"github.com/smallbiznis/tradieapp/internal/auth/session"
	"github.com/smallbiznis/tradieapp/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
	token.Module,
	authenticator.Module,
)
