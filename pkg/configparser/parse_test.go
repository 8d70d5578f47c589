package configparser

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Redis struct {
		Addr string `env:"TEST_REDIS_ADDR" default:"localhost:6379"`
		DB   int    `env:"TEST_REDIS_DB" default:"0"`
	}
	Throttle time.Duration `env:"TEST_RELAY_THROTTLE" default:"1s"`
	Brokers  []string      `env:"TEST_KAFKA_BROKERS" default:"a:9092, b:9092"`
	Bias     float64       `env:"TEST_BIAS" default:"0.45"`
	Compress bool          `env:"TEST_COMPRESS" default:"true"`
}

func TestParseEnv_Defaults(t *testing.T) {
	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Redis.Addr != "localhost:6379" || cfg.Throttle != time.Second || cfg.Bias != 0.45 || !cfg.Compress {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Brokers)
	}
}

func TestParseEnv_EnvOverrides(t *testing.T) {
	t.Setenv("TEST_REDIS_DB", "3")
	t.Setenv("TEST_RELAY_THROTTLE", "1200ms")

	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Redis.DB != 3 || cfg.Throttle != 1200*time.Millisecond {
		t.Fatalf("env must override defaults: %+v", cfg)
	}
}

func TestParseEnv_BadValue(t *testing.T) {
	t.Setenv("TEST_REDIS_DB", "three")

	var cfg testConfig
	if err := ParseEnv(&cfg); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseEnv_RejectsNonPointer(t *testing.T) {
	if err := ParseEnv(testConfig{}); err != ErrNotStructPointer {
		t.Fatalf("expected ErrNotStructPointer, got %v", err)
	}
}

func TestLoadYamlFile_Nested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
yamltest:
  redis:
    addr: "cache:6379" # inline comment
  relay:
    throttle: ${YAMLTEST_UNSET_VAR:-2s}
yamltest_top: value
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("YAMLTEST_REDIS_ADDR")
		os.Unsetenv("YAMLTEST_RELAY_THROTTLE")
		os.Unsetenv("YAMLTEST_TOP")
	})

	if err := LoadYamlFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := os.Getenv("YAMLTEST_REDIS_ADDR"); got != "cache:6379" {
		t.Fatalf("YAMLTEST_REDIS_ADDR = %q", got)
	}
	if got := os.Getenv("YAMLTEST_RELAY_THROTTLE"); got != "2s" {
		t.Fatalf("YAMLTEST_RELAY_THROTTLE = %q", got)
	}
	if got := os.Getenv("YAMLTEST_TOP"); got != "value" {
		t.Fatalf("YAMLTEST_TOP = %q", got)
	}
}
