package main

import (
	"travelcore/internal/coupons/handler"
	"travelcore/internal/coupons/repository"
	"travelcore/internal/coupons/service"
	"travelcore/internal/coupons/validator"
	"travelcore/pkg/app"
	"travelcore/pkg/claim"
	"travelcore/pkg/config"
)

const ServiceName = "coupons"

func main() {
	cfg := config.Load(ServiceName)
	app.Connect(cfg)

	cfg.Log.Info("Starting Coupons service")
	coord, closePublisher, err := app.NewCoordinator(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to build claim coordinator", "error", err)
	}

	couponService := initServices(cfg, coord)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewCouponHandler(couponService, cfg.Log))
	serverApp.OnShutdown(closePublisher)
	serverApp.Run()
}

func initServices(cfg *config.Config, coord *claim.Coordinator) service.CouponService {
	couponValidator := validator.NewCouponValidator(cfg.Log)

	var couponRepo repository.CouponRepository
	if cfg.StoreDriver == config.StoreMongo {
		couponRepo = repository.NewMongoCouponRepository(cfg)
	} else {
		couponRepo = repository.NewMemoryCouponRepository()
	}

	couponService := service.NewCouponService(
		couponRepo,
		couponValidator,
		coord,
		cfg,
	)

	cfg.Log.Info("Coupon service initialized", "store", cfg.StoreDriver, "lock", cfg.LockDriver)
	return couponService
}
