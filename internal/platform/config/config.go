package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, assembled from the environment.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Leads    LeadsConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	LogLevel      string
	LogFormat     string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// DatabaseConfig selects Postgres. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
	TxTimeout       time.Duration
}

// RedisConfig backs the dashboard stats cache. An empty URL keeps the cache in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StatsTTL     time.Duration
}

// KafkaConfig carries lead activity events. No brokers keeps events in memory.
type KafkaConfig struct {
	Brokers         []string
	LeadEventsTopic string
	ClientID        string
}

// LeadsConfig holds business limits.
type LeadsConfig struct {
	ImportBatchSize int
	RouteMaxStops   int
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:          envString("ADDR", ":8080"),
			Environment:   envString("ENVIRONMENT", "development"),
			LogLevel:      envString("LOG_LEVEL", "info"),
			LogFormat:     envString("LOG_FORMAT", "json"),
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     envString("JWT_ISSUER", "leadline"),
			JWTAudience:   envString("JWT_AUDIENCE", "leadline-api"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			MigrateOnStart:  envBool("MIGRATE_ON_START", true),
			TxTimeout:       envDuration("DB_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			StatsTTL:     envDuration("STATS_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:         envList("KAFKA_BROKERS"),
			LeadEventsTopic: envString("KAFKA_LEAD_EVENTS_TOPIC", "lead-events"),
			ClientID:        envString("KAFKA_CLIENT_ID", "leadline"),
		},
		Leads: LeadsConfig{
			ImportBatchSize: envInt("IMPORT_BATCH_SIZE", 50),
			RouteMaxStops:   envInt("ROUTE_MAX_STOPS", 25),
		},
	}
}

// IsProduction reports whether the server runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
