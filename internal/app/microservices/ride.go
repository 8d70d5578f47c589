package microservices

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Temutjin2k/ride-lifecycle/config"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/broker"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/firebase"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	authsvc "github.com/Temutjin2k/ride-lifecycle/internal/service/auth"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/profile"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/ride"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/watch"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

// RideService serves profiles, the ride lifecycle and ride/queue streams.
type RideService struct {
	httpServer *server.API
	storage    *storage
	events     *events
	firebase   *firebase.App
	feed       *watch.Feed

	cfg config.Config
	log logger.Logger
}

func NewRide(ctx context.Context, cfg config.Config, log logger.Logger) (*RideService, error) {
	s := &RideService{cfg: cfg, log: log}
	ctx = wrap.WithAction(ctx, "ride_service_setup")

	var err error
	if s.firebase, err = newFirebase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to setup firebase: %w", err)
	}
	if s.storage, err = newStorage(ctx, cfg, s.firebase, log); err != nil {
		s.close(ctx)
		return nil, err
	}
	if s.events, err = newEvents(ctx, cfg, string(types.RideService), log); err != nil {
		s.close(ctx)
		return nil, err
	}

	verifier, err := newVerifier(cfg, s.firebase)
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	s.feed = watch.NewFeed(log)

	// local watchers see the event right away, the broker carries it to other instances
	publisher := broker.NewFanout(s.feed, s.events.publisher)

	profileService := profile.New(s.storage.profiles, s.storage.trm, log)
	rideService := ride.New(
		s.storage.rides,
		s.storage.locks,
		s.storage.contacts,
		s.storage.events,
		profileService,
		publisher,
		s.storage.trm,
		log,
	)
	watcher := watch.NewWatcher(s.feed, rideService, log)
	authService := authsvc.NewAuthService(verifier, profileService, log)

	s.httpServer, err = server.New(cfg, server.Services{
		Auth:    authService,
		Profile: profileService,
		Ride:    rideService,
		Watcher: watcher,
	}, log)
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("failed to create http server: %w", err)
	}

	return s, nil
}

func (s *RideService) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runConsumer(wrap.WithAction(consumeCtx, "ride_events_consume"), s.events, s.feed.PublishRideEvent, s.log)
	}()

	s.httpServer.Run(ctx, errCh)
	defer func() {
		stopConsumer()
		wg.Wait()
		s.close(ctx)
		s.log.Info(ctx, "ride service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "ride service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (s *RideService) close(ctx context.Context) {
	ctx = wrap.WithAction(ctx, "ride_service_close")

	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "failed to gracefully close http server", "error", err.Error())
		}
	}
	if s.events != nil {
		s.events.close(ctx)
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
