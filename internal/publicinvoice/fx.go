package publicinvoice

import (
	"github.com/smallbiznis/invoicer/internal/publicinvoice/repository"
	"github.com/smallbiznis/invoicer/internal/publicinvoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"publicinvoice",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
