package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the Postgres record store when set; otherwise the
	// registry runs on the in-memory store.
	DatabaseURL string

	// RedisURL enables the redis stream event sink when set.
	RedisURL string

	// KafkaBrokers/KafkaTopic enable the kafka event sink when both are set.
	KafkaBrokers []string
	KafkaTopic   string

	TracingEnabled bool
}

// RedisConfig tunes the shared redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("DID_REGISTRY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:           addr,
		JWTSigningKey:  jwtSigningKey,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaBrokers:   brokers,
		KafkaTopic:     os.Getenv("KAFKA_TOPIC"),
		TracingEnabled: os.Getenv("TRACING_ENABLED") == "true",
	}
}

// Redis derives the redis client configuration with pool defaults.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
