package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Backend selects where the session record is persisted
type Backend string

const (
	BackendFile   Backend = "file"
	BackendRedis  Backend = "redis"
	BackendDynamo Backend = "dynamo"
	BackendMemory Backend = "memory"
	BackendNone   Backend = "none"
)

// DynamoMode represents the DynamoDB connection mode
type DynamoMode string

const (
	DynamoModeLocal DynamoMode = "local"
	DynamoModeAWS   DynamoMode = "aws"
)

// DynamoConfig holds DynamoDB configuration
type DynamoConfig struct {
	Mode         DynamoMode
	Endpoint     string // for local mode
	Region       string
	SessionTable string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Config selects and configures the session backend
type Config struct {
	Backend Backend
	Dir     string // file backend
	Redis   RedisConfig
	Dynamo  DynamoConfig
}

// LoadConfig loads the session backend config from environment
func LoadConfig() (Config, error) {
	backend := Backend(getEnv("SESSION_BACKEND", string(BackendFile)))
	switch backend {
	case BackendFile, BackendRedis, BackendDynamo, BackendMemory, BackendNone:
	default:
		return Config{}, fmt.Errorf("invalid SESSION_BACKEND: %q", backend)
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	ttl, err := time.ParseDuration(getEnv("REDIS_SESSION_TTL", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_SESSION_TTL: %w", err)
	}

	mode := DynamoMode(getEnv("DYNAMO_MODE", string(DynamoModeLocal)))
	if mode != DynamoModeLocal && mode != DynamoModeAWS {
		return Config{}, fmt.Errorf("invalid DYNAMO_MODE: %q", mode)
	}

	return Config{
		Backend: backend,
		Dir:     getEnv("SESSION_DIR", defaultDir()),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
			TTL:      ttl,
		},
		Dynamo: DynamoConfig{
			Mode:         mode,
			Endpoint:     getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
			Region:       getEnv("DYNAMO_REGION", "eu-central-1"),
			SessionTable: getEnv("DYNAMO_SESSION_TABLE", "monti-insights-sessions"),
		},
	}, nil
}

func defaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "monti")
	}
	return ".monti"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
