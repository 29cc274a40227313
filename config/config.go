package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Capacity CapacityConfig
	Code     CodeConfig
	Client   ClientConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CapacityConfig tunes ledger defaults, projection thresholds and the CAS loop.
type CapacityConfig struct {
	DefaultMaxCapacity int
	DefaultFreeLimit   int
	LimitedRatio       float64
	AdvancedOnlyRatio  float64
	ReserveRetries     int
	StatusCacheTTL     time.Duration
}

type CodeConfig struct {
	TokenLength  int
	IssueRetries int
	Validity     time.Duration
}

// ClientConfig tunes the polling client: breaker, retry/backoff and timeouts.
type ClientConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	RetryAttempts    int
	RetryBaseBackoff time.Duration
	RetryMaxBackoff  time.Duration
	AttemptTimeout   time.Duration
	PollInterval     time.Duration
}

var AppConfig *Config

func LoadConfig() *Config {
	AppConfig = &Config{
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Capacity: GetCapacityConfig(),
		Code:     GetCodeConfig(),
		Client:   GetClientConfig(),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433",
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380",
		Password: "",
		DB:       1,
	}

	return &Config{
		Database: *testConfig,
		Redis:    testRedisConfig,
		Capacity: GetCapacityConfig(),
		Code:     GetCodeConfig(),
		Client:   GetClientConfig(),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetCapacityConfig() CapacityConfig {
	return CapacityConfig{
		DefaultMaxCapacity: getEnvInt("SESSION_MAX_CAPACITY", 300),
		DefaultFreeLimit:   getEnvInt("SESSION_FREE_LIMIT", 150),
		LimitedRatio:       getEnvFloat("STATUS_LIMITED_RATIO", 0.80),
		AdvancedOnlyRatio:  getEnvFloat("STATUS_ADVANCED_ONLY_RATIO", 0.95),
		ReserveRetries:     getEnvInt("RESERVE_CAS_RETRIES", 5),
		StatusCacheTTL:     getEnvDuration("STATUS_CACHE_TTL", 3*time.Second),
	}
}

func GetCodeConfig() CodeConfig {
	return CodeConfig{
		TokenLength:  getEnvInt("CODE_TOKEN_LENGTH", 4),
		IssueRetries: getEnvInt("CODE_ISSUE_RETRIES", 10),
		Validity:     getEnvDuration("CODE_VALIDITY", 90*24*time.Hour),
	}
}

func GetClientConfig() ClientConfig {
	return ClientConfig{
		FailureThreshold: getEnvInt("CLIENT_FAILURE_THRESHOLD", 3),
		RecoveryTimeout:  getEnvDuration("CLIENT_RECOVERY_TIMEOUT", 60*time.Second),
		RetryAttempts:    getEnvInt("CLIENT_RETRY_ATTEMPTS", 3),
		RetryBaseBackoff: getEnvDuration("CLIENT_RETRY_BASE_BACKOFF", time.Second),
		RetryMaxBackoff:  getEnvDuration("CLIENT_RETRY_MAX_BACKOFF", 8*time.Second),
		AttemptTimeout:   getEnvDuration("CLIENT_ATTEMPT_TIMEOUT", 5*time.Second),
		PollInterval:     getEnvDuration("CLIENT_POLL_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		panic(err)
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		panic(err)
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err)
	}
	return d
}
