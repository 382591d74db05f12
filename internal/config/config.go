package config

import (
	"fmt"
	"log"
	"time"

	"realm-server/internal/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the realm server.
type Config struct {
	// Server settings
	MetricsPort string `envconfig:"REALM_METRICS_PORT" default:"9090"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// PostgreSQL settings
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Secret field WITHOUT an envconfig tag
	DBPassword string

	// Redis settings (hint debounce store)
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	DebounceWindow time.Duration `envconfig:"EXIT_HINT_DEBOUNCE_WINDOW" default:"5s"`

	// RabbitMQ settings
	RabbitMQURL     string `envconfig:"RABBITMQ_URL" required:"true"`
	WorldEventQueue string `envconfig:"WORLD_EVENT_QUEUE" default:"world_events"`
	WorldEventDLX   string `envconfig:"WORLD_EVENT_DLX" default:"world_events_dlx"`
	WorldEventDLQ   string `envconfig:"WORLD_EVENT_DLQ" default:"world_events_dlq"`

	// Description generation settings
	AIBaseURL          string        `envconfig:"AI_BASE_URL" default:""`
	AIModel            string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	GenerationTimeout  time.Duration `envconfig:"GENERATION_TIMEOUT" default:"30s"`
	HeroProseMaxLength int           `envconfig:"HERO_PROSE_MAX_LENGTH" default:"4000"`
	// Secret field WITHOUT an envconfig tag
	AIAPIKey string

	// Consistency scanner settings
	ScanInterval  time.Duration `envconfig:"GRAPH_SCAN_INTERVAL" default:"10m"`
	SeedLocations []string      `envconfig:"SEED_LOCATION_IDS" default:""`
}

// GetDSN returns the PostgreSQL connection string (DSN).
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads the configuration from environment variables and secrets.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load realm-server configuration: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.AIAPIKey, loadErr = utils.ReadSecret("ai_api_key")
	if loadErr != nil {
		return nil, loadErr
	}

	log.Printf("Realm server configuration loaded (secrets from files):")
	log.Printf("  MetricsPort: %s", cfg.MetricsPort)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  DB Max Conns: %d", cfg.DBMaxConns)
	log.Printf("  Redis Addr: %s", cfg.RedisAddr)
	log.Printf("  Debounce Window: %v", cfg.DebounceWindow)
	log.Printf("  RabbitMQ URL: %s", cfg.RabbitMQURL)
	log.Printf("  World Event Queue: %s", cfg.WorldEventQueue)
	log.Printf("  AI Model: %s", cfg.AIModel)
	log.Printf("  Scan Interval: %v", cfg.ScanInterval)
	log.Println("  AI API Key: [LOADED]")

	return &cfg, nil
}
