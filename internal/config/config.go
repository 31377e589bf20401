package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds all configuration for the application
type Config struct {
	AppMode       string
	Port          string
	StorageDriver string
	Database      DatabaseConfig
	RabbitMQ      RabbitMQConfig
	Consumer      ConsumerConfig
	Scoring       ScoringConfig
	Redis         RedisConfig
	Reconcile     ReconcileConfig
	JWT           JWTConfig
	Log           LogConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RabbitMQConfig holds broker connection and topology configuration
type RabbitMQConfig struct {
	Host              string
	Port              string
	User              string
	Password          string
	VirtualHost       string
	Heartbeat         time.Duration
	MaxReconnectDelay time.Duration
	PublishTimeout    time.Duration

	// Exchange names per topic, queue names per consumer group
	RequestCreatedExchange  string
	CreditDecisionsExchange string
	RequestsQueue           string
	DecisionsQueue          string
}

// ConsumerConfig holds decision consumer configuration
type ConsumerConfig struct {
	Enabled         bool
	Workers         int
	Prefetch        int
	HandlerTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// ScoringConfig holds score oracle configuration
type ScoringConfig struct {
	Provider    string // "mock" or "http"
	URL         string
	Timeout     time.Duration
	MockLatency time.Duration
	RateLimit   float64 // requests per second, 0 disables
	Burst       int
	CacheTTL    time.Duration
}

// RedisConfig holds redis configuration for the score cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ReconcileConfig holds reconciliation sweep configuration
type ReconcileConfig struct {
	Enabled      bool
	Schedule     string
	PendingGrace time.Duration
	BatchSize    int
}

// JWTConfig holds the secret used to validate externally issued tokens
type JWTConfig struct {
	Secret string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	storage := strings.ToLower(strings.TrimSpace(getEnv("STORAGE_DRIVER", "mysql")))
	if storage != "mysql" && storage != "memory" {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: '%s' (must be 'mysql' or 'memory')", storage)
	}

	scoring := loadScoringConfig()
	if scoring.Provider != "mock" && scoring.Provider != "http" {
		return nil, fmt.Errorf("invalid SCORE_PROVIDER: '%s' (must be 'mock' or 'http')", scoring.Provider)
	}
	if scoring.Provider == "http" && scoring.URL == "" {
		return nil, fmt.Errorf("SCORE_PROVIDER_URL is required when SCORE_PROVIDER=http")
	}

	config := &Config{
		AppMode:       appMode,
		Port:          getEnv("PORT", "3000"),
		StorageDriver: storage,
		Database:      loadDatabaseConfig(appMode),
		RabbitMQ:      loadRabbitMQConfig(),
		Consumer:      loadConsumerConfig(),
		Scoring:       scoring,
		Redis:         loadRedisConfig(),
		Reconcile:     loadReconcileConfig(),
		JWT:           JWTConfig{Secret: getEnv("JWT_SECRET", "")},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", defaultLogFormat(appMode)),
		},
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s, STORAGE: %s]", appMode, storage)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "creditsystem"),
	}
}

func loadRabbitMQConfig() RabbitMQConfig {
	return RabbitMQConfig{
		Host:              getEnv("RABBITMQ_HOST", "localhost"),
		Port:              getEnv("RABBITMQ_PORT", "5672"),
		User:              getEnv("RABBITMQ_USER", "guest"),
		Password:          getEnv("RABBITMQ_PASS", "guest"),
		VirtualHost:       getEnv("RABBITMQ_VHOST", "/"),
		Heartbeat:         getDuration("RABBITMQ_HEARTBEAT", 30*time.Second),
		MaxReconnectDelay: getDuration("RABBITMQ_MAX_RECONNECT_DELAY", 30*time.Second),
		PublishTimeout:    getDuration("RABBITMQ_PUBLISH_TIMEOUT", 5*time.Second),

		RequestCreatedExchange:  getEnv("RABBITMQ_REQUEST_CREATED_EXCHANGE", "request-created"),
		CreditDecisionsExchange: getEnv("RABBITMQ_CREDIT_DECISIONS_EXCHANGE", "credit-decisions"),
		RequestsQueue:           getEnv("RABBITMQ_REQUESTS_QUEUE", "credit-requests-queue"),
		DecisionsQueue:          getEnv("RABBITMQ_DECISIONS_QUEUE", "credit-decisions-queue"),
	}
}

func loadConsumerConfig() ConsumerConfig {
	workers := getInt("CONSUMER_WORKERS", 4)
	return ConsumerConfig{
		Enabled:         getBool("CONSUMER_ENABLED", true),
		Workers:         workers,
		Prefetch:        getInt("CONSUMER_PREFETCH", workers*2),
		HandlerTimeout:  getDuration("CONSUMER_HANDLER_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDuration("CONSUMER_SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func loadScoringConfig() ScoringConfig {
	rps, _ := strconv.ParseFloat(getEnv("SCORE_RATE_LIMIT", "0"), 64)

	return ScoringConfig{
		Provider:    strings.ToLower(strings.TrimSpace(getEnv("SCORE_PROVIDER", "mock"))),
		URL:         getEnv("SCORE_PROVIDER_URL", ""),
		Timeout:     getDuration("SCORE_TIMEOUT", 5*time.Second),
		MockLatency: getDuration("SCORE_MOCK_LATENCY", 100*time.Millisecond),
		RateLimit:   rps,
		Burst:       getInt("SCORE_RATE_BURST", 1),
		CacheTTL:    getDuration("SCORE_CACHE_TTL", 10*time.Minute),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getInt("REDIS_DB", 0),
	}
}

func loadReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		Enabled:      getBool("RECONCILE_ENABLED", true),
		Schedule:     getEnv("RECONCILE_SCHEDULE", "@every 1m"),
		PendingGrace: getDuration("RECONCILE_PENDING_GRACE", 2*time.Minute),
		BatchSize:    getInt("RECONCILE_BATCH_SIZE", 100),
	}
}

func defaultLogFormat(mode string) string {
	if mode == "prod" {
		return "json"
	}
	return "text"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://credit.example.com"
	}
	return origins
}

// AMQPURL builds the broker connection URL with credentials and vhost escaped
func (r RabbitMQConfig) AMQPURL() string {
	port, err := strconv.Atoi(r.Port)
	if err != nil {
		port = 5672
	}
	vhost := r.VirtualHost
	if vhost == "" {
		vhost = "/"
	}
	return amqp.URI{
		Scheme:   "amqp",
		Host:     r.Host,
		Port:     port,
		Username: r.User,
		Password: r.Password,
		Vhost:    vhost,
	}.String()
}
