package payment

import (
	"github.com/smallbiznis/invoicer/internal/payment/gateway"
	"github.com/smallbiznis/invoicer/internal/payment/repository"
	"github.com/smallbiznis/invoicer/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(gateway.Provide),
	fx.Provide(service.NewService),
)
