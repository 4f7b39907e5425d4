package publictoken

import (
	"github.com/smallbiznis/tradieapp/internal/publictoken/repository"
	"github.com/smallbiznis/tradieapp/internal/publictoken/service"
	"go.uber.org/fx"
)

var Module = fx.Module("publictoken.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
