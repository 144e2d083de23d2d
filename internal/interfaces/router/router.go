package router

import (
	"context"
	"errors"
	"net/http"

	analyticssvc "tradedesk-backend/internal/application/analytics"
	contractsvc "tradedesk-backend/internal/application/contracts"
	partysvc "tradedesk-backend/internal/application/parties"
	routingsvc "tradedesk-backend/internal/application/routing"
	shipmentsvc "tradedesk-backend/internal/application/shipments"
	tanksvc "tradedesk-backend/internal/application/tanks"
	"tradedesk-backend/internal/config"
	"tradedesk-backend/internal/events"
	"tradedesk-backend/internal/infrastructure/cache"
	"tradedesk-backend/internal/infrastructure/database"
	"tradedesk-backend/internal/infrastructure/store"
	analyticshandler "tradedesk-backend/internal/interfaces/handlers/analytics"
	contracthandler "tradedesk-backend/internal/interfaces/handlers/contracts"
	healthhandler "tradedesk-backend/internal/interfaces/handlers/health"
	partyhandler "tradedesk-backend/internal/interfaces/handlers/parties"
	routinghandler "tradedesk-backend/internal/interfaces/handlers/routing"
	shipmenthandler "tradedesk-backend/internal/interfaces/handlers/shipments"
	tankhandler "tradedesk-backend/internal/interfaces/handlers/tanks"
	"tradedesk-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var errNoDatabase = errors.New("database URL is not configured")

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp opens the database and Redis, wires the services to the event bus
// and mounts every route. The change listener stops when the app shuts down.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, nil, errNoDatabase
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}
	rdb, err := cache.Open(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.Actor())
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.NoStore())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             &gormDBPinger{db: db},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.JSON)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	bus := events.NewBus()
	st := store.New(db, bus)

	shipments := &shipmentsvc.Service{Store: st}
	shipments.Subscribe(bus)
	analytics := &analyticssvc.Service{Store: st, Rdb: rdb, TTL: cfg.AnalyticsCacheTTL}
	analytics.Subscribe(bus)

	listenCtx, stopListening := context.WithCancel(context.Background())
	app.Hooks().OnShutdown(func() error {
		stopListening()
		return nil
	})
	if rdb != nil {
		relay := &events.RedisRelay{Rdb: rdb, Channel: cfg.ChangeChannel}
		bus.Subscribe(events.CollectionChanged, relay.Forward)
		startListener(listenCtx, relay, analytics)
	}

	routing := &routingsvc.Service{Store: st}
	api := app.Group("/api/v1")
	(&contracthandler.Handlers{Service: &contractsvc.Service{Store: st}}).Register(api)
	(&shipmenthandler.Handlers{Service: shipments, Routing: routing}).Register(api)
	(&tankhandler.Handlers{Service: &tanksvc.Service{Store: st}}).Register(api)
	(&routinghandler.Handlers{Service: routing}).Register(api)
	(&partyhandler.Handlers{Service: &partysvc.Service{Store: st}}).Register(api)
	(&analyticshandler.Handlers{Service: analytics}).Register(api)

	return app, db, rdb, nil
}

// startListener relays collection changes made by other instances into the
// local analytics cache. A failed subscription only disables the relay.
func startListener(ctx context.Context, relay *events.RedisRelay, analytics *analyticssvc.Service) {
	sub, err := relay.Subscribe(ctx)
	if err != nil {
		log.Warn().Err(err).Str("component", "router").Msg("change relay subscription failed")
		return
	}
	go events.Listen(ctx, sub, analytics.OnRemoteChange)
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
