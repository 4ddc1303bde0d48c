package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/tradekit/clob/pkg/errors"
	"github.com/tradekit/clob/pkg/redis"
)

// Config represents the application configuration.
type Config struct {
	App        AppConfig        `envPrefix:"APP_"`
	OrderKafka OrderKafkaConfig `envPrefix:"ORDER_KAFKA_"`
	MatchKafka MatchKafkaConfig `envPrefix:"MATCH_KAFKA_"`
	Redis      redis.Config     `envPrefix:"REDIS_"`
	Snapshot   SnapshotConfig   `envPrefix:"SNAPSHOT_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"clob-engine"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	// ValidateBooks re-checks the book invariants after every applied
	// request. Debug aid, not meant for production traffic.
	ValidateBooks bool `env:"VALIDATE_BOOKS" envDefault:"false"`
}

// OrderKafkaConfig represents the Kafka configuration for the inbound order stream.
type OrderKafkaConfig struct {
	Brokers   []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic     string   `env:"TOPIC" envDefault:"orders"`
	Partition int      `env:"PARTITION" envDefault:"0"`
}

// MatchKafkaConfig represents the Kafka configuration for the outbound match stream.
type MatchKafkaConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"matches"`
}

// SnapshotConfig selects and tunes the snapshot store.
type SnapshotConfig struct {
	// Backend is either "redis" or "pebble".
	Backend     string        `env:"BACKEND" envDefault:"redis"`
	PebblePath  string        `env:"PEBBLE_PATH" envDefault:"./data/snapshots"`
	Interval    time.Duration `env:"INTERVAL" envDefault:"30s"`
	OffsetDelta int64         `env:"OFFSET_DELTA" envDefault:"1000"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.NewTracer(string(errors.ConfigParseError)).Wrap(err)
	}

	return cfg, nil
}
