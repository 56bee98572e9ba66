package main

import (
	couponrepository "travelcore/internal/coupons/repository"
	couponservice "travelcore/internal/coupons/service"
	couponvalidator "travelcore/internal/coupons/validator"
	"travelcore/internal/hotels/handler"
	"travelcore/internal/hotels/repository"
	"travelcore/internal/hotels/service"
	"travelcore/internal/hotels/validator"
	"travelcore/pkg/app"
	"travelcore/pkg/claim"
	"travelcore/pkg/config"
)

const ServiceName = "hotels"

func main() {
	cfg := config.Load(ServiceName)
	app.Connect(cfg)

	cfg.Log.Info("Starting Hotels service")
	coord, closePublisher, err := app.NewCoordinator(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to build claim coordinator", "error", err)
	}

	hotelService := initServices(cfg, coord)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewHotelHandler(hotelService, cfg.Log))
	serverApp.OnShutdown(closePublisher)
	serverApp.Run()
}

// initServices shares one coordinator between rooms and coupons so a booking
// coupon is redeemed inside the booking transaction.
func initServices(cfg *config.Config, coord *claim.Coordinator) service.HotelService {
	var hotelRepo repository.HotelRepository
	var couponRepo couponrepository.CouponRepository
	if cfg.StoreDriver == config.StoreMongo {
		hotelRepo = repository.NewMongoHotelRepository(cfg)
		couponRepo = couponrepository.NewMongoCouponRepository(cfg)
	} else {
		hotelRepo = repository.NewMemoryHotelRepository()
		couponRepo = couponrepository.NewMemoryCouponRepository()
	}

	couponService := couponservice.NewCouponService(
		couponRepo,
		couponvalidator.NewCouponValidator(cfg.Log),
		coord,
		cfg,
	)
	hotelService := service.NewHotelService(
		hotelRepo,
		couponService,
		validator.NewHotelValidator(cfg.Log),
		coord,
		cfg,
	)

	cfg.Log.Info("Hotel service initialized", "store", cfg.StoreDriver, "lock", cfg.LockDriver, "currency", cfg.Currency)
	return hotelService
}
