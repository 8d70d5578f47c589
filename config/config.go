package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/configparser"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

// Flags
var (
	modeFlag = flag.String("mode", "", "application mode: ride-service or location-service")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
	ErrInvalidMode     = errors.New("invalid mode")
	ErrMemoryStorage   = errors.New("the memory storage driver shares no state between processes, location-service needs postgres or firestore")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode types.ServiceMode

		Log      LogConfig
		Services ServicesConfig
		Storage  StorageConfig
		Database DatabaseConfig
		Firebase FirebaseConfig
		Redis    RedisConfig
		Events   EventsConfig
		RabbitMQ RabbitMQConfig
		Kafka    KafkaConfig
		Auth     AuthConfig
		Geo      GeoConfig
		Location LocationConfig
		HTTP     HTTPConfig
	}

	LogConfig struct {
		Level      string `env:"LOG_LEVEL" default:"INFO"`
		File       string `env:"LOG_FILE"`
		MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" default:"100"`
		MaxBackups int    `env:"LOG_MAX_BACKUPS" default:"5"`
		MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" default:"14"`
		Compress   bool   `env:"LOG_COMPRESS" default:"true"`
	}

	ServicesConfig struct {
		RideService     string `env:"SERVICES_RIDE_SERVICE" default:"3000"`
		LocationService string `env:"SERVICES_LOCATION_SERVICE" default:"3001"`
	}

	StorageConfig struct {
		Driver types.StorageDriver `env:"STORAGE_DRIVER" default:"postgres"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"ridehail_user"`
		Password string `env:"DATABASE_PASSWORD" default:"ridehail_pass"`
		Database string `env:"DATABASE_DATABASE" default:"ridehail_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	FirebaseConfig struct {
		ProjectID       string `env:"FIREBASE_PROJECT_ID"`
		CredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	}

	RedisConfig struct {
		Host     string `env:"REDIS_HOST" default:"localhost"`
		Port     string `env:"REDIS_PORT" default:"6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" default:"0"`
	}

	EventsConfig struct {
		Broker types.EventBroker `env:"EVENTS_BROKER" default:"rabbitmq"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
		// Queue is the consumer queue. Empty means one exclusive queue per instance.
		Queue string `env:"RABBITMQ_QUEUE"`
	}

	KafkaConfig struct {
		Brokers      []string      `env:"KAFKA_BROKERS" default:"localhost:9092"`
		Topic        string        `env:"KAFKA_TOPIC" default:"ride.events"`
		GroupID      string        `env:"KAFKA_GROUP_ID"`
		WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" default:"5s"`
	}

	AuthConfig struct {
		Provider       types.AuthProvider `env:"AUTH_PROVIDER" default:"jwt"`
		JWTSecret      string             `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
		Issuer         string             `env:"AUTH_ISSUER" default:"ride-lifecycle"`
		AccessTokenTTL time.Duration      `env:"AUTH_ACCESS_TOKEN_TTL" default:"24h"`
	}

	GeoConfig struct {
		GeocoderURL      string        `env:"GEO_GEOCODER_URL" default:"https://us1.locationiq.com/v1"`
		GeocoderAPIKey   string        `env:"GEO_GEOCODER_API_KEY"`
		GeocoderLanguage string        `env:"GEO_GEOCODER_LANGUAGE" default:"ar,en"`
		UserAgent        string        `env:"GEO_USER_AGENT" default:"ride-lifecycle/1.0"`
		RouterURL        string        `env:"GEO_ROUTER_URL" default:"https://router.project-osrm.org"`
		RouterProfile    string        `env:"GEO_ROUTER_PROFILE" default:"driving"`
		RequestTimeout   time.Duration `env:"GEO_REQUEST_TIMEOUT" default:"8s"`
		RouteCacheTTL    time.Duration `env:"GEO_ROUTE_CACHE_TTL" default:"10m"`
	}

	LocationConfig struct {
		PublishInterval time.Duration `env:"LOCATION_PUBLISH_INTERVAL" default:"1s"`
		PositionTTL     time.Duration `env:"LOCATION_POSITION_TTL" default:"2h"`
	}

	HTTPConfig struct {
		AllowedOrigins  []string      `env:"HTTP_ALLOWED_ORIGINS"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() (maxConns, minConns int32, maxLifetime, maxIdle time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func (c RedisConfig) GetAddr() string     { return net.JoinHostPort(c.Host, c.Port) }
func (c RedisConfig) GetPassword() string { return c.Password }
func (c RedisConfig) GetDB() int          { return c.DB }

func (c LogConfig) FileSink() logger.FileConfig {
	return logger.FileConfig{
		Path:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// Port returns the listen port of the configured mode.
func (c Config) Port() string {
	if c.Mode == types.LocationService {
		return c.Services.LocationService
	}
	return c.Services.RideService
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	// Parsing flags
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(*modeFlag)

	return nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case types.RideService, types.LocationService:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}

	switch c.Storage.Driver {
	case types.StoragePostgres, types.StorageMemory:
	case types.StorageFirestore:
		if c.Firebase.ProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required for the firestore storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Mode == types.LocationService && c.Storage.Driver == types.StorageMemory {
		return ErrMemoryStorage
	}

	switch c.Events.Broker {
	case types.BrokerRabbitMQ, types.BrokerNone:
	case types.BrokerKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka broker")
		}
	default:
		return fmt.Errorf("unknown events broker %q", c.Events.Broker)
	}

	switch c.Auth.Provider {
	case types.AuthJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("AUTH_JWT_SECRET is required for the jwt auth provider")
		}
	case types.AuthFirebase:
		if c.Firebase.ProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required for the firebase auth provider")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.Auth.Provider)
	}

	if !logger.ValidateLogLevel(c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	return nil
}
