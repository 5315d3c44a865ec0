package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	apperrors "github.com/johnquangdev/grain-sync/errors"
	pkgvalidator "github.com/johnquangdev/grain-sync/pkg/validator"
)

// TokenVariable is the environment variable holding the Grain workspace token
const TokenVariable = "GRAIN_API_TOKEN"

// ResumeMode decides what happens when a saved checkpoint is found
type ResumeMode string

const (
	ResumePrompt ResumeMode = "prompt"
	ResumeAlways ResumeMode = "true"
	ResumeNever  ResumeMode = "false"
)

// CheckpointBackend selects where the resume checkpoint lives
type CheckpointBackend string

const (
	CheckpointFile  CheckpointBackend = "file"
	CheckpointRedis CheckpointBackend = "redis"
)

// Config holds application configuration
type Config struct {
	Grain      GrainConfig      `envconfig:"GRAIN"`
	Sync       SyncConfig       `envconfig:"SYNC"`
	Checkpoint CheckpointConfig `envconfig:"CHECKPOINT"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Storage    StorageConfig    `envconfig:"STORAGE"`
	Index      IndexConfig      `envconfig:"INDEX"`
	Database   DatabaseConfig   `envconfig:"DB"`
	Log        LogConfig        `envconfig:"LOG"`
}

// GrainConfig holds Grain workspace API configuration
type GrainConfig struct {
	APIToken   string        `envconfig:"API_TOKEN"`
	BaseURL    string        `envconfig:"BASE_URL" default:"https://api.grain.com/_/workspace-api" validate:"required,url"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"30s" validate:"gt=0"`
	MaxRetries int           `envconfig:"MAX_RETRIES" default:"0" validate:"gte=0,lte=10"`
}

// SyncConfig holds the fetch-and-persist loop configuration
type SyncConfig struct {
	OutputDir      string        `envconfig:"OUTPUT_DIR" default:"recordings" validate:"required"`
	StateFile      string        `envconfig:"STATE_FILE" default:".cursor_state.json" validate:"required"`
	Resume         ResumeMode    `envconfig:"RESUME" default:"prompt" validate:"oneof=prompt true false"`
	TestMode       bool          `envconfig:"TEST_MODE" default:"false"`
	RecordingDelay time.Duration `envconfig:"RECORDING_DELAY" default:"1s" validate:"gte=0"`
	PageDelay      time.Duration `envconfig:"PAGE_DELAY" default:"500ms" validate:"gte=0"`
}

// CheckpointConfig holds checkpoint backend selection
type CheckpointConfig struct {
	Backend CheckpointBackend `envconfig:"BACKEND" default:"file" validate:"oneof=file redis"`
}

// RedisConfig holds Redis configuration for the redis checkpoint backend
type RedisConfig struct {
	Host          string `envconfig:"HOST" default:"localhost"`
	Port          string `envconfig:"PORT" default:"6379"`
	Password      string `envconfig:"PASSWORD"`
	DB            int    `envconfig:"DB" default:"0" validate:"gte=0"`
	CheckpointKey string `envconfig:"CHECKPOINT_KEY" default:"grainsync:cursor_state" validate:"required"`
}

// StorageConfig holds the optional object mirror configuration
type StorageConfig struct {
	Enabled         bool   `envconfig:"ENABLED" default:"false"`
	Endpoint        string `envconfig:"ENDPOINT" default:"localhost:9000" validate:"required_if=Enabled true"`
	AccessKeyID     string `envconfig:"ACCESS_KEY" validate:"required_if=Enabled true"`
	SecretAccessKey string `envconfig:"SECRET_KEY" validate:"required_if=Enabled true"`
	BucketName      string `envconfig:"BUCKET" default:"grain-recordings" validate:"required_if=Enabled true"`
	UseSSL          bool   `envconfig:"USE_SSL" default:"false"`
	Region          string `envconfig:"REGION"`
	Prefix          string `envconfig:"PREFIX"`
}

// IndexConfig toggles the postgres export index
type IndexConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"false"`
}

// DatabaseConfig holds database configuration for the export index
type DatabaseConfig struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"5432"`
	User     string `envconfig:"USER" default:"postgres"`
	Password string `envconfig:"PASSWORD" default:"postgres"`
	Name     string `envconfig:"NAME" default:"grain_sync"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"MAX_CONNS" default:"5" validate:"gt=0"`
	MinConns int    `envconfig:"MIN_CONNS" default:"1" validate:"gte=0"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"FORMAT" default:"console" validate:"oneof=console json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	return FromEnv()
}

// FromEnv decodes and validates the current process environment without touching .env
func FromEnv() (*Config, error) {
	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, apperrors.ErrInvalidConfig(err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := pkgvalidator.New().Validate(c); err != nil {
		return apperrors.ErrInvalidConfig(err)
	}
	return nil
}

// RequireAPIToken fails when the Grain token is absent. Commands that talk to the API call it
// before any network access.
func (c *Config) RequireAPIToken() error {
	if c.Grain.APIToken == "" {
		return apperrors.ErrMissingToken(TokenVariable)
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
