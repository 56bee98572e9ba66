package main

import (
	"travelcore/internal/flights/handler"
	"travelcore/internal/flights/repository"
	"travelcore/internal/flights/service"
	"travelcore/internal/flights/validator"
	"travelcore/pkg/app"
	"travelcore/pkg/claim"
	"travelcore/pkg/config"
)

const ServiceName = "flights"

func main() {
	cfg := config.Load(ServiceName)
	app.Connect(cfg)

	cfg.Log.Info("Starting Flights service")
	coord, closePublisher, err := app.NewCoordinator(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to build claim coordinator", "error", err)
	}

	flightService := initServices(cfg, coord)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewFlightHandler(flightService, cfg.Log))
	serverApp.OnShutdown(closePublisher)
	serverApp.Run()
}

func initServices(cfg *config.Config, coord *claim.Coordinator) service.FlightService {
	flightValidator := validator.NewFlightValidator(cfg.Log)

	var flightRepo repository.FlightRepository
	if cfg.StoreDriver == config.StoreMongo {
		flightRepo = repository.NewMongoFlightRepository(cfg)
	} else {
		flightRepo = repository.NewMemoryFlightRepository()
	}

	flightService := service.NewFlightService(
		flightRepo,
		flightValidator,
		coord,
		cfg,
	)

	cfg.Log.Info("Flight service initialized", "store", cfg.StoreDriver, "lock", cfg.LockDriver)
	return flightService
}
