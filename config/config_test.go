package config

import (
	"errors"
	"testing"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

func validConfig() Config {
	var c Config
	c.Mode = types.RideService
	c.Storage.Driver = types.StorageMemory
	c.Events.Broker = types.BrokerNone
	c.Auth.Provider = types.AuthJWT
	c.Auth.JWTSecret = "secret"
	c.Log.Level = logger.LevelInfo
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
		invalid bool
	}{
		{name: "ride service on memory", mutate: func(c *Config) {}},
		{
			name: "location service on postgres",
			mutate: func(c *Config) {
				c.Mode = types.LocationService
				c.Storage.Driver = types.StoragePostgres
			},
		},
		{
			name: "location service on memory",
			mutate: func(c *Config) {
				c.Mode = types.LocationService
			},
			wantErr: ErrMemoryStorage,
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "billing" },
			wantErr: ErrInvalidMode,
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Events.Broker = types.BrokerKafka
				c.Kafka.Brokers = nil
			},
			invalid: true,
		},
		{
			name:    "jwt without secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			invalid: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "TRACE" },
			invalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)

			err := c.validate()
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("validate() = %v, want %v", err, tt.wantErr)
				}
			case tt.invalid:
				if err == nil {
					t.Fatal("validate() accepted an invalid config")
				}
			default:
				if err != nil {
					t.Fatalf("validate() = %v", err)
				}
			}
		})
	}
}
