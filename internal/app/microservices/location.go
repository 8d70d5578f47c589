package microservices

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Temutjin2k/ride-lifecycle/config"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/firebase"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/geocoder"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/osrm"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	authsvc "github.com/Temutjin2k/ride-lifecycle/internal/service/auth"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/geo"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/profile"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/relay"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/watch"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

// LocationService relays live driver positions and serves the geo helpers.
type LocationService struct {
	httpServer *server.API
	storage    *storage
	events     *events
	positions  *positionStore
	firebase   *firebase.App
	feed       *watch.Feed
	relay      *relay.Relay

	cfg config.Config
	log logger.Logger
}

func NewLocation(ctx context.Context, cfg config.Config, log logger.Logger) (*LocationService, error) {
	s := &LocationService{cfg: cfg, log: log}
	ctx = wrap.WithAction(ctx, "location_service_setup")
	service := string(types.LocationService)

	var err error
	if s.firebase, err = newFirebase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to setup firebase: %w", err)
	}
	if s.storage, err = newStorage(ctx, cfg, s.firebase, log); err != nil {
		s.close(ctx)
		return nil, err
	}
	if s.events, err = newEvents(ctx, cfg, service, log); err != nil {
		s.close(ctx)
		return nil, err
	}
	if s.positions, err = newPositionStore(ctx, cfg, log); err != nil {
		s.close(ctx)
		return nil, err
	}

	verifier, err := newVerifier(cfg, s.firebase)
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	// fed only by the broker, this service never changes rides
	s.feed = watch.NewFeed(log)
	s.relay = relay.New(s.storage.rides, s.positions.store, s.feed, cfg.Location.PublishInterval, log)

	geoService := geo.New(
		geocoder.New(geocoder.Config{
			BaseURL:   cfg.Geo.GeocoderURL,
			APIKey:    cfg.Geo.GeocoderAPIKey,
			Language:  cfg.Geo.GeocoderLanguage,
			UserAgent: cfg.Geo.UserAgent,
			Timeout:   cfg.Geo.RequestTimeout,
		}, service),
		osrm.New(osrm.Config{
			BaseURL: cfg.Geo.RouterURL,
			Profile: cfg.Geo.RouterProfile,
			Timeout: cfg.Geo.RequestTimeout,
		}, service),
		cfg.Geo.RouteCacheTTL,
		log,
	)

	profileService := profile.New(s.storage.profiles, s.storage.trm, log)
	authService := authsvc.NewAuthService(verifier, profileService, log)

	s.httpServer, err = server.New(cfg, server.Services{
		Auth:      authService,
		Positions: s.relay,
		Geo:       geoService,
	}, log)
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("failed to create http server: %w", err)
	}

	return s, nil
}

func (s *LocationService) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	bgCtx, stopBackground := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runConsumer(wrap.WithAction(bgCtx, "ride_events_consume"), s.events, s.feed.PublishRideEvent, s.log)
	}()
	go func() {
		defer wg.Done()
		s.relay.Run(wrap.WithAction(bgCtx, "position_cleanup"))
	}()

	s.httpServer.Run(ctx, errCh)
	defer func() {
		stopBackground()
		wg.Wait()
		s.close(ctx)
		s.log.Info(ctx, "location service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "location service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (s *LocationService) close(ctx context.Context) {
	ctx = wrap.WithAction(ctx, "location_service_close")

	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "failed to gracefully close http server", "error", err.Error())
		}
	}
	if s.events != nil {
		s.events.close(ctx)
	}
	if s.positions != nil {
		s.positions.close()
	}
	if s.storage != nil {
		s.storage.close()
	}
	if s.firebase != nil {
		if err := s.firebase.Close(); err != nil {
			s.log.Warn(ctx, "failed to close firebase app", "error", err.Error())
		}
	}
}
