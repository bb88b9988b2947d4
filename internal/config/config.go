package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the media vault service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"mediavault"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"MEDIA_PORT" envDefault:"8180"`
	LogLevel        string        `env:"MEDIA_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Metadata Store Selection
	MetadataBackend string `env:"MEDIA_METADATA_BACKEND" envDefault:"postgres"` // Options: "postgres" or "memory"

	// Database
	DatabaseDSN    string        `env:"DB_POSTGRES_DSN"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Payload Storage Backend Selection
	StorageBackend string `env:"MEDIA_STORAGE_BACKEND" envDefault:"local"` // Options: "local" or "s3"

	// Local Storage Configuration
	LocalStoragePath string `env:"MEDIA_LOCAL_STORAGE_PATH" envDefault:"./media-data"`

	// S3 Storage Configuration
	S3Endpoint     string `env:"MEDIA_S3_ENDPOINT"`
	S3Region       string `env:"MEDIA_S3_REGION" envDefault:"us-west-2"`
	S3Bucket       string `env:"MEDIA_S3_BUCKET"`
	S3AccessKeyID  string `env:"MEDIA_S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"MEDIA_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `env:"MEDIA_S3_USE_PATH_STYLE" envDefault:"true"`

	// Identity Verification
	JWTSecret string `env:"MEDIA_JWT_SECRET,notEmpty"`

	// Media Configuration
	MaxMediaBytes int64 `env:"MEDIA_MAX_BYTES" envDefault:"104857600"` // 100 MiB, the legacy upload cap

	// Processing Pipeline
	ProcessingInterval time.Duration `env:"MEDIA_PROCESSING_INTERVAL" envDefault:"2s"`
	ProcessingStep     int           `env:"MEDIA_PROCESSING_STEP" envDefault:"25"`
	SafeBias           float64       `env:"MEDIA_SAFE_BIAS" envDefault:"0.8"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.DatabaseDSN = strings.TrimSpace(cfg.DatabaseDSN)
	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)

	if cfg.IsPostgresMetadata() && cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DB_POSTGRES_DSN is required when MEDIA_METADATA_BACKEND is postgres")
	}
	if cfg.MaxMediaBytes <= 0 {
		cfg.MaxMediaBytes = 100 * 1024 * 1024
	}
	if cfg.ProcessingStep <= 0 || cfg.ProcessingStep > 100 {
		return nil, fmt.Errorf("MEDIA_PROCESSING_STEP must be in (0,100], got %d", cfg.ProcessingStep)
	}
	if cfg.ProcessingInterval <= 0 {
		return nil, fmt.Errorf("MEDIA_PROCESSING_INTERVAL must be positive")
	}
	if cfg.SafeBias < 0 || cfg.SafeBias > 1 {
		return nil, fmt.Errorf("MEDIA_SAFE_BIAS must be in [0,1], got %v", cfg.SafeBias)
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsPostgresMetadata returns true if the gorm/Postgres metadata store is selected.
func (c *Config) IsPostgresMetadata() bool {
	backend := strings.ToLower(strings.TrimSpace(c.MetadataBackend))
	return backend == "" || backend == "postgres"
}

// IsLocalStorage returns true if local payload storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return backend == "" || backend == "local"
}
