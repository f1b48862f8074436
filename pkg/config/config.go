package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every knob the server reads. Values come from the
// environment; a .env file in the working directory is loaded first when
// present.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	ScyllaHosts    []string `env:"SCYLLA_HOSTS" envSeparator:"," envDefault:"localhost:9042"`
	ScyllaKeyspace string   `env:"SCYLLA_KEYSPACE" envDefault:"vibelink"`

	RedisAddr string `env:"REDIS_ADDR"`

	// Optional multi-instance fan-out bridge. Leave brokers empty to fan
	// out in-process only.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"dm-events"`

	// Optional background-job emission.
	AMQPURL string `env:"AMQP_URL"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`

	// Delegated image service. Empty MediaUploadURL disables attachments.
	MediaUploadURL string `env:"MEDIA_UPLOAD_URL"`
	MediaAPIKey    string `env:"MEDIA_API_KEY"`

	// Must be unique per instance when running more than one.
	SnowflakeNode int64 `env:"SNOWFLAKE_NODE" envDefault:"1"`
}

func Load() (*Config, error) {
	// Missing .env is fine; the environment alone may be complete.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
