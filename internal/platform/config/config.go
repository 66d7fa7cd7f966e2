// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr string

	// PostgresURL selects the durable store. Empty runs on the in-memory
	// store (development and tests).
	PostgresURL string

	Redis RedisConfig

	// KafkaBrokers enables the Kafka audit sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	JWTSigningKey string
	TokenTTL      time.Duration

	// AdminAddress bootstraps the registry admin; AdminSecret seeds its
	// credential.
	AdminAddress string
	AdminSecret  string

	AuditBuffer int
}

// RedisConfig captures Redis connection settings for the verifier set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          getEnv("AGRIPROOF_ADDR", ":8080"),
		PostgresURL:   os.Getenv("AGRIPROOF_POSTGRES_URL"),
		KafkaTopic:    getEnv("AGRIPROOF_KAFKA_TOPIC", "agriproof.audit"),
		JWTSigningKey: getEnv("AGRIPROOF_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:      getDuration("AGRIPROOF_TOKEN_TTL", time.Hour),
		AdminAddress:  getEnv("AGRIPROOF_ADMIN_ADDRESS", "admin"),
		AdminSecret:   os.Getenv("AGRIPROOF_ADMIN_SECRET"),
		AuditBuffer:   getInt("AGRIPROOF_AUDIT_BUFFER", 256),
		Redis: RedisConfig{
			URL:          os.Getenv("AGRIPROOF_REDIS_URL"),
			PoolSize:     getInt("AGRIPROOF_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("AGRIPROOF_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("AGRIPROOF_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("AGRIPROOF_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("AGRIPROOF_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	if brokers := os.Getenv("AGRIPROOF_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
