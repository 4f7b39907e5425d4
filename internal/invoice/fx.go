package invoice

import (
	"github.com/smallbiznis/tradieapp/internal/invoice/repository"
	"github.com/smallbiznis/tradieapp/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
