package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/config"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ride-lifecycle/pkg/wsHub"
)

const serverIPAddress = "%s:%s"

type API struct {
	mode   types.ServiceMode
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware
	hub    *ws.ConnectionHub

	addr            string
	shutdownTimeout time.Duration
	log             logger.Logger
}

type handlers struct {
	health   *handler.Health
	profile  *handler.Profile
	ride     *handler.Ride
	location *handler.Location
	geo      *handler.Geo
	stream   *handler.Stream
}

// PositionRelay both accepts and streams live positions.
type PositionRelay interface {
	handler.PositionPublisher
	handler.PositionWatcher
}

// Services are the use cases served over HTTP. Only the ones of the
// configured mode are required.
type Services struct {
	Auth      middleware.AuthService
	Profile   handler.ProfileService
	Ride      handler.RideService
	Watcher   handler.RideWatcher
	Positions PositionRelay
	Geo       handler.GeoService
}

func New(cfg config.Config, services Services, log logger.Logger) (*API, error) {
	if services.Auth == nil {
		return nil, errors.New("auth service is required")
	}

	hub := ws.NewConnHub(log)
	routes := &handlers{
		health: handler.NewHealth(string(cfg.Mode), log),
	}

	var port string
	switch cfg.Mode {
	case types.RideService:
		if services.Profile == nil || services.Ride == nil || services.Watcher == nil {
			return nil, errors.New("profile, ride and watcher services are required")
		}
		port = cfg.Services.RideService
		routes.profile = handler.NewProfile(services.Profile, log)
		routes.ride = handler.NewRide(services.Ride, log)
		routes.stream = handler.NewStream(string(cfg.Mode), services.Watcher, nil, hub, cfg.HTTP.AllowedOrigins, log)
	case types.LocationService:
		if services.Positions == nil || services.Geo == nil {
			return nil, errors.New("position relay and geo services are required")
		}
		port = cfg.Services.LocationService
		routes.location = handler.NewLocation(services.Positions, log)
		routes.geo = handler.NewGeo(services.Geo, log)
		routes.stream = handler.NewStream(string(cfg.Mode), nil, services.Positions, hub, cfg.HTTP.AllowedOrigins, log)
	default:
		return nil, fmt.Errorf("invalid mode: %s", cfg.Mode)
	}

	api := &API{
		mode:            cfg.Mode,
		mux:             http.NewServeMux(),
		routes:          routes,
		m:               middleware.NewMiddleware(services.Auth, log),
		hub:             hub,
		addr:            fmt.Sprintf(serverIPAddress, "0.0.0.0", port),
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
		log:             log,
	}
	if api.shutdownTimeout <= 0 {
		api.shutdownTimeout = 5 * time.Second
	}

	setupRoutes(api.mux, api.routes, api.m, api.mode, log)

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api, nil
}

// Stop drains HTTP requests, then closes the open websocket streams.
// Shutdown does not track hijacked connections, the hub does.
func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.shutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	err := a.server.Shutdown(ctx)
	a.hub.Close()
	if err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// Handler returns the mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(
		a.m.RequestID(
			a.m.Logging(
				a.m.Metrics(string(a.mode))(
					a.m.Auth(a.mux),
				),
			),
		),
	)
}
