package microservices

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-lifecycle/config"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/firebase"
	fsrepo "github.com/Temutjin2k/ride-lifecycle/internal/adapter/firestore"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/kafka"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/memory"
	pgrepo "github.com/Temutjin2k/ride-lifecycle/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/ride-lifecycle/internal/adapter/rabbit"
	redisadapter "github.com/Temutjin2k/ride-lifecycle/internal/adapter/redis"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	authsvc "github.com/Temutjin2k/ride-lifecycle/internal/service/auth"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/ride"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/postgres"
	"github.com/Temutjin2k/ride-lifecycle/pkg/rabbit"
	"github.com/Temutjin2k/ride-lifecycle/pkg/redisdb"
	"github.com/Temutjin2k/ride-lifecycle/pkg/trm"
)

// storage is the persistence backend selected by STORAGE_DRIVER.
type storage struct {
	rides    ride.RideRepo
	locks    ride.ActorLocks
	contacts ride.ContactRepo
	events   ride.RideEventRepo
	profiles profileRepo
	trm      trm.TxManager

	memory bool
	close  func()
}

// profileRepo is the union of what the profile service and the ride service need.
type profileRepo interface {
	Get(ctx context.Context, userID string) (models.RawProfile, error)
	CreateIfAbsent(ctx context.Context, p models.RawProfile) (models.RawProfile, error)
	Save(ctx context.Context, p models.RawProfile) error
}

func newStorage(ctx context.Context, cfg config.Config, fb *firebase.App, log logger.Logger) (*storage, error) {
	ctx = wrap.WithAction(ctx, "storage_setup")

	switch cfg.Storage.Driver {
	case types.StoragePostgres:
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to setup database: %w", err)
		}
		log.Info(ctx, "connected to postgres", "host", cfg.Database.Host)
		return &storage{
			rides:    pgrepo.NewRideRepo(db.Pool),
			locks:    pgrepo.NewActorLocks(db.Pool),
			contacts: pgrepo.NewContactRepo(db.Pool),
			events:   pgrepo.NewRideEventRepo(db.Pool),
			profiles: pgrepo.NewProfileRepo(db.Pool),
			trm:      trm.New(db.Pool),
			close:    db.Pool.Close,
		}, nil

	case types.StorageFirestore:
		if fb == nil || fb.Firestore == nil {
			return nil, errors.New("firestore client is not initialized")
		}
		client := fb.Firestore
		log.Info(ctx, "using firestore", "project_id", cfg.Firebase.ProjectID)
		return &storage{
			rides:    fsrepo.NewRideRepo(client),
			locks:    fsrepo.NewActorLocks(client),
			contacts: fsrepo.NewContactRepo(client),
			events:   fsrepo.NewRideEventRepo(client),
			profiles: fsrepo.NewProfileRepo(client),
			trm:      fsrepo.NewTxManager(client),
			// the firebase app owns the client
			close: func() {},
		}, nil

	case types.StorageMemory:
		db := memory.New()
		log.Warn(ctx, "using in-memory storage, data is lost on restart")
		return &storage{
			rides:    memory.NewRideRepo(db),
			locks:    memory.NewActorLocks(db),
			contacts: memory.NewContactRepo(db),
			events:   memory.NewRideEventRepo(db),
			profiles: memory.NewProfileRepo(db),
			trm:      db,
			memory:   true,
			close:    func() {},
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// newFirebase creates the Firebase app when storage or auth needs it.
func newFirebase(ctx context.Context, cfg config.Config) (*firebase.App, error) {
	withFirestore := cfg.Storage.Driver == types.StorageFirestore
	withAuth := cfg.Auth.Provider == types.AuthFirebase
	if !withFirestore && !withAuth {
		return nil, nil
	}

	return firebase.New(ctx, firebase.Config{
		ProjectID:       cfg.Firebase.ProjectID,
		CredentialsFile: cfg.Firebase.CredentialsFile,
	}, withFirestore, withAuth)
}

func newVerifier(cfg config.Config, fb *firebase.App) (authsvc.TokenVerifier, error) {
	switch cfg.Auth.Provider {
	case types.AuthFirebase:
		if fb == nil || fb.Auth == nil {
			return nil, errors.New("firebase auth client is not initialized")
		}
		return firebase.NewVerifier(fb.Auth), nil
	case types.AuthJWT:
		return authsvc.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL), nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
}

// eventHandler receives lifecycle events read back from the broker.
type eventHandler func(ctx context.Context, msg models.RideEventMessage) error

// events is the lifecycle event transport selected by EVENTS_BROKER.
type events struct {
	// publisher is nil when only in-process delivery is configured
	publisher ride.Publisher
	consume   func(ctx context.Context, fn eventHandler) error
	close     func(ctx context.Context)
}

func newEvents(ctx context.Context, cfg config.Config, service string, log logger.Logger) (*events, error) {
	ctx = wrap.WithAction(ctx, "events_setup")

	switch cfg.Events.Broker {
	case types.BrokerRabbitMQ:
		client, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		broker := rabbitadapter.NewRideBroker(client, log)
		if err := broker.DeclareTopology(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("failed to declare rabbitmq topology: %w", err)
		}
		consumer := rabbitadapter.NewRideEventConsumer(client, cfg.RabbitMQ.Queue, service, log)
		return &events{
			publisher: broker,
			consume: func(ctx context.Context, fn eventHandler) error {
				return consumer.Consume(ctx, rabbitadapter.RideEventHandler(fn))
			},
			close: func(ctx context.Context) {
				if err := client.Close(ctx); err != nil {
					log.Warn(ctx, "failed to close rabbitmq", "error", err.Error())
				}
			},
		}, nil

	case types.BrokerKafka:
		kcfg := kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			GroupID:      cfg.Kafka.GroupID,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}
		// every instance needs every event, so the default group is per host
		if kcfg.GroupID == "" {
			host, _ := os.Hostname()
			kcfg.GroupID = fmt.Sprintf("%s-%s-%d", service, host, os.Getpid())
		}
		producer := kafka.NewRideProducer(kcfg)
		consumer := kafka.NewRideConsumer(kcfg, service, log)
		log.Info(ctx, "using kafka", "brokers", cfg.Kafka.Brokers, "group_id", kcfg.GroupID)
		return &events{
			publisher: producer,
			consume: func(ctx context.Context, fn eventHandler) error {
				return consumer.Consume(ctx, kafka.RideEventHandler(fn))
			},
			close: func(ctx context.Context) {
				if err := consumer.Close(); err != nil {
					log.Warn(ctx, "failed to close kafka reader", "error", err.Error())
				}
				if err := producer.Close(); err != nil {
					log.Warn(ctx, "failed to close kafka writer", "error", err.Error())
				}
			},
		}, nil

	case types.BrokerNone:
		log.Warn(ctx, "no events broker, watchers see only this instance")
		return &events{
			consume: func(ctx context.Context, _ eventHandler) error {
				<-ctx.Done()
				return nil
			},
			close: func(context.Context) {},
		}, nil
	}

	return nil, fmt.Errorf("unknown events broker %q", cfg.Events.Broker)
}

// positionStore is the relay store: redis, or process memory with the memory driver.
type positionStore struct {
	store interface {
		Set(ctx context.Context, pos models.LivePosition) error
		Latest(ctx context.Context, rideID string) (models.LivePosition, bool, error)
		Delete(ctx context.Context, rideID string) error
		Subscribe(ctx context.Context, rideID string) (<-chan models.LivePosition, error)
	}
	close func()
}

func newPositionStore(ctx context.Context, cfg config.Config, log logger.Logger) (*positionStore, error) {
	if cfg.Storage.Driver == types.StorageMemory {
		return &positionStore{store: memory.NewPositionStore(cfg.Location.PositionTTL), close: func() {}}, nil
	}

	client, err := redisdb.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info(ctx, "connected to redis", "addr", cfg.Redis.GetAddr())

	return &positionStore{
		store: redisadapter.NewPositionStore(client, cfg.Location.PositionTTL, log),
		close: func() { closeRedis(client, log) },
	}, nil
}

func closeRedis(client *redis.Client, log logger.Logger) {
	if err := client.Close(); err != nil {
		log.Warn(context.Background(), "failed to close redis", "error", err.Error())
	}
}

// runConsumer forwards broker events to fn until ctx ends.
func runConsumer(ctx context.Context, ev *events, fn eventHandler, log logger.Logger) {
	for {
		err := ev.consume(ctx, fn)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error(wrap.ErrorCtx(ctx, err), "event consumer stopped, restarting", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
