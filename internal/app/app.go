package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parkwise/internal/bus"
	"parkwise/internal/config"
	"parkwise/internal/db"
	"parkwise/internal/fees"
	httpserver "parkwise/internal/http"
	"parkwise/internal/http/handlers"
	"parkwise/internal/http/middleware"
	"parkwise/internal/redisstore"
	"parkwise/internal/repository"
	"parkwise/internal/service"
	"parkwise/internal/ws"
	"parkwise/libs/redisclient"
)

const bootstrapTimeout = 15 * time.Second

// App wires parking service dependencies.
type App struct {
	server      *httpserver.Server
	ingress     *bus.Ingress
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	bootCtx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()
	if err := db.EnsureSchema(bootCtx, pool, cfg.Parking.Capacity); err != nil {
		pool.Close()
		return nil, err
	}

	redisClient, err := redisclient.New(cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		pool.Close()
		return nil, err
	}

	riderRepo := repository.NewRiderRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	walletRepo := repository.NewWalletRepository(pool)

	gateBus := bus.NewRedisBus(redisClient)
	sessions := redisstore.NewStore(redisClient, cfg.ActiveSessionTTL())
	hub := ws.NewHub(logger)

	calc := fees.NewCalculator(cfg.Parking.BaseCharge, cfg.Parking.PerBlockCharge)
	wallet := service.NewWalletService(walletRepo, gateBus, logger)
	coordinator := service.NewCoordinator(riderRepo, slotRepo, wallet, calc, sessions, hub, logger)
	ingress := bus.NewIngress(gateBus, gateBus, coordinator, logger)

	riderHandler := handlers.NewRiderHandler(riderRepo, walletRepo, wallet, slotRepo, sessions, logger)
	slotHandler := handlers.NewSlotHandler(slotRepo, logger)
	adminHandler := handlers.NewAdminHandler(coordinator, riderRepo, slotRepo, walletRepo, logger)

	routes := httpserver.Routes{
		Health: handlers.NewHealthHandler(),

		RegisterRider:     riderHandler.HandleRegister,
		GetRider:          riderHandler.HandleGetByID,
		GetRiderByRFID:    riderHandler.HandleGetByRFID,
		RiderTransactions: riderHandler.HandleTransactions,
		WalletTopup:       riderHandler.HandleTopup,
		ActiveSession:     riderHandler.HandleActiveSession,

		ListSlots:    slotHandler.HandleList,
		GetSlot:      slotHandler.HandleGet,
		Availability: slotHandler.HandleAvailability,

		SlotFeed: hub.HandleWS,

		AdminAuth:         middleware.AdminAuth(cfg.Admin.JWTSecret),
		ForceRelease:      adminHandler.HandleForceRelease,
		AdminRiders:       adminHandler.HandleRiders,
		AdminTransactions: adminHandler.HandleTransactions,
		AdminSummary:      adminHandler.HandleSummary,
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		ingress:     ingress,
		db:          pool,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the gate event ingress and the HTTP server; the first failure
// stops the application.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- a.ingress.Run(runCtx) }()
	go func() { errCh <- a.server.Run(runCtx) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
