// Package config loads service configuration from a YAML file overlaid with
// environment variables, and hot-reloads the tunables that are safe to retune
// on a live process.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Matching engine
	MatchBudget      int `yaml:"match_budget"`
	MatchParallelism int `yaml:"match_parallelism"`

	// Resolution worker pool
	ResolutionWorkers int `yaml:"resolution_workers"`

	// Archive storage
	ArchiveBackend string `yaml:"archive_backend"` // badger | dynamodb | none
	BadgerPath     string `yaml:"badger_path"`

	// AWS configuration
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	EventBusName  string `yaml:"event_bus_name"`

	// Lambda configuration
	IsLambda bool `yaml:"is_lambda"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableCORS    bool `yaml:"enable_cors"`

	// ConfigFile is the path the config was loaded from, empty when
	// environment-only. The watcher re-reads it on change.
	ConfigFile string `yaml:"-"`
}

// LoadConfig loads configuration from the optional YAML file named by
// CONFIG_FILE, then overlays environment variables on top.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("CONFIG_FILE")
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}
	cfg.overlayEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func defaults() *Config {
	return &Config{
		ServerAddress:     ":8080",
		Environment:       "development",
		MatchBudget:       100000,
		MatchParallelism:  4,
		ResolutionWorkers: 4,
		ArchiveBackend:    "badger",
		BadgerPath:        "./data/archive",
		AWSRegion:         "us-west-2",
		DynamoDBTable:     "molstack-documents",
		EventBusName:      "molstack-events",
		LogLevel:          "info",
		JWTIssuer:         "molstack",
		EnableMetrics:     true,
		EnableCORS:        true,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.MatchBudget = getEnvInt("MATCH_BUDGET", c.MatchBudget)
	c.MatchParallelism = getEnvInt("MATCH_PARALLELISM", c.MatchParallelism)
	c.ResolutionWorkers = getEnvInt("RESOLUTION_WORKERS", c.ResolutionWorkers)
	c.ArchiveBackend = getEnv("ARCHIVE_BACKEND", c.ArchiveBackend)
	c.BadgerPath = getEnv("BADGER_PATH", c.BadgerPath)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("DYNAMODB_TABLE", c.DynamoDBTable)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.MatchBudget <= 0 {
		return fmt.Errorf("match_budget must be positive")
	}
	if c.MatchParallelism <= 0 {
		return fmt.Errorf("match_parallelism must be positive")
	}
	if c.ResolutionWorkers <= 0 {
		return fmt.Errorf("resolution_workers must be positive")
	}
	switch c.ArchiveBackend {
	case "badger", "dynamodb", "none":
	default:
		return fmt.Errorf("unknown archive_backend %q", c.ArchiveBackend)
	}
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.ArchiveBackend == "dynamodb" && c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
