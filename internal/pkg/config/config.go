package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all service configuration
type Config struct {
	Environment string

	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Queue    QueueConfig
	Monitor  MonitorConfig
}

// ServerConfig holds process-level settings
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	LogLevel        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // minutes
	MaxConnIdleTime int // minutes
}

// CacheConfig holds Redis settings
type CacheConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	DialTimeout  int // seconds
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	PoolSize     int
	MinIdleConns int
}

// QueueConfig holds Asynq worker settings
type QueueConfig struct {
	Concurrency    int
	StrictPriority bool
	MaxRetries     int
}

// MonitorConfig holds inventory monitoring cadences
type MonitorConfig struct {
	AlertRefreshSeconds   int // aggregator polling interval
	RecomputeMinutes      int // risk score recompute cadence
	ExpirySweepMinutes    int // expiry sweep cadence
	FeedChannel           string
	AckChannel            string
	WarehouseID           string // optional: scope the monitor to one warehouse
	ViewerRole            string
	ManifestDir           string // drop directory for supplier manifests
	ManifestScanSeconds   int    // drop directory scan cadence
	ManifestRetentionDays int    // archived manifest retention
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using environment variables only")
		}
	}

	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", "8080")

	// Database defaults
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_NAME", "coldchain")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_LOG_LEVEL", "silent")
	viper.SetDefault("DB_MAX_CONNECTIONS", 20)
	viper.SetDefault("DB_MIN_CONNECTIONS", 2)
	viper.SetDefault("DB_MAX_CONN_LIFETIME_MIN", 60)
	viper.SetDefault("DB_MAX_CONN_IDLE_MIN", 10)

	// Redis defaults
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_DIAL_TIMEOUT", 5)
	viper.SetDefault("REDIS_READ_TIMEOUT", 3)
	viper.SetDefault("REDIS_WRITE_TIMEOUT", 3)
	viper.SetDefault("REDIS_POOL_SIZE", 10)
	viper.SetDefault("REDIS_MIN_IDLE_CONNS", 2)

	// Worker defaults
	viper.SetDefault("WORKER_CONCURRENCY", 10)
	viper.SetDefault("WORKER_STRICT_PRIORITY", false)
	viper.SetDefault("WORKER_MAX_RETRIES", 3)

	// Monitoring defaults
	viper.SetDefault("ALERT_REFRESH_SECONDS", 30)
	viper.SetDefault("RISK_RECOMPUTE_MINUTES", 15)
	viper.SetDefault("EXPIRY_SWEEP_MINUTES", 60)
	viper.SetDefault("FEED_CHANNEL", "batches:changes")
	viper.SetDefault("ACK_CHANNEL", "alerts:acknowledged")
	viper.SetDefault("MONITOR_WAREHOUSE_ID", "")
	viper.SetDefault("MONITOR_VIEWER_ROLE", "manager")
	viper.SetDefault("MANIFEST_DIR", "./data/manifests")
	viper.SetDefault("MANIFEST_SCAN_SECONDS", 60)
	viper.SetDefault("MANIFEST_RETENTION_DAYS", 30)

	viper.AutomaticEnv()

	config := &Config{
		Environment: viper.GetString("ENV"),
		Server: ServerConfig{
			Host: viper.GetString("SERVER_HOST"),
			Port: viper.GetString("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			LogLevel:        viper.GetString("DB_LOG_LEVEL"),
			MaxConnections:  viper.GetInt("DB_MAX_CONNECTIONS"),
			MinConnections:  viper.GetInt("DB_MIN_CONNECTIONS"),
			MaxConnLifetime: viper.GetInt("DB_MAX_CONN_LIFETIME_MIN"),
			MaxConnIdleTime: viper.GetInt("DB_MAX_CONN_IDLE_MIN"),
		},
		Cache: CacheConfig{
			Host:         viper.GetString("REDIS_HOST"),
			Port:         viper.GetInt("REDIS_PORT"),
			Password:     viper.GetString("REDIS_PASSWORD"),
			DB:           viper.GetInt("REDIS_DB"),
			DialTimeout:  viper.GetInt("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  viper.GetInt("REDIS_READ_TIMEOUT"),
			WriteTimeout: viper.GetInt("REDIS_WRITE_TIMEOUT"),
			PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		Queue: QueueConfig{
			Concurrency:    viper.GetInt("WORKER_CONCURRENCY"),
			StrictPriority: viper.GetBool("WORKER_STRICT_PRIORITY"),
			MaxRetries:     viper.GetInt("WORKER_MAX_RETRIES"),
		},
		Monitor: MonitorConfig{
			AlertRefreshSeconds:   viper.GetInt("ALERT_REFRESH_SECONDS"),
			RecomputeMinutes:      viper.GetInt("RISK_RECOMPUTE_MINUTES"),
			ExpirySweepMinutes:    viper.GetInt("EXPIRY_SWEEP_MINUTES"),
			FeedChannel:           viper.GetString("FEED_CHANNEL"),
			AckChannel:            viper.GetString("ACK_CHANNEL"),
			WarehouseID:           viper.GetString("MONITOR_WAREHOUSE_ID"),
			ViewerRole:            viper.GetString("MONITOR_VIEWER_ROLE"),
			ManifestDir:           viper.GetString("MANIFEST_DIR"),
			ManifestScanSeconds:   viper.GetInt("MANIFEST_SCAN_SECONDS"),
			ManifestRetentionDays: viper.GetInt("MANIFEST_RETENTION_DAYS"),
		},
	}

	// Validate required fields
	if config.Database.User == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if config.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	return config, nil
}

// RedisAddr constructs the Redis address string
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Cache.Host, c.Cache.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LogConfig logs the configuration (hiding sensitive data)
func (c *Config) LogConfig() {
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", c.Environment)
	log.Printf("  Server: %s:%s", c.Server.Host, c.Server.Port)
	log.Printf("  Database: %s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Database)
	log.Printf("  Redis: %s:%d (DB: %d)", c.Cache.Host, c.Cache.Port, c.Cache.DB)
	log.Printf("  Alert refresh: %ds", c.Monitor.AlertRefreshSeconds)
	log.Printf("  Expiry sweep: every %dm", c.Monitor.ExpirySweepMinutes)
	log.Printf("  Worker concurrency: %d", c.Queue.Concurrency)
}
