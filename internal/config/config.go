package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Engine modes
const (
	EngineProcess = "process"
	EngineHTTP    = "http"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	PythonPath           string        `yaml:"python_path"`
	EngineScript         string        `yaml:"engine_script"`
	EngineMetricsFlag    string        `yaml:"engine_metrics_flag"`
	EngineMode           string        `yaml:"engine_mode"`
	EngineURL            string        `yaml:"engine_url"`
	EngineTimeout        time.Duration `yaml:"engine_timeout"`
	EngineMaxConcurrency int           `yaml:"engine_max_concurrency"`
	EngineRetries        int           `yaml:"engine_retries"`
	EngineRPS            int           `yaml:"engine_rps"`

	StorageDriver string `yaml:"storage_driver"`
	DBHost        string `yaml:"db_host"`
	DBPort        string `yaml:"db_port"`
	DBUser        string `yaml:"db_user"`
	DBPassword    string `yaml:"db_password"`
	DBName        string `yaml:"db_name"`
	DBSSLMode     string `yaml:"db_sslmode"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	PersistTimeout time.Duration `yaml:"persist_timeout"`
	StrictFields   bool          `yaml:"strict_fields"`

	TelegramBotToken  string `yaml:"telegram_bot_token"`
	TelegramOpsChatID int64  `yaml:"telegram_ops_chat_id"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() Config {
	return Config{
		Port:                 "8080",
		LogLevel:             "info",
		LogFormat:            "json",
		PythonPath:           "python3",
		EngineScript:         "server/ml_model.py",
		EngineMetricsFlag:    "--metrics",
		EngineMode:           EngineProcess,
		EngineTimeout:        30 * time.Second,
		EngineMaxConcurrency: 4,
		StorageDriver:        StorageMemory,
		DBHost:               "localhost",
		DBPort:               "5432",
		DBUser:               "postgres",
		DBName:               "housepricer",
		DBSSLMode:            "disable",
		RedisAddr:            "localhost:6379",
		RateLimitRPS:         5,
		RateLimitBurst:       10,
		PersistTimeout:       10 * time.Second,
	}
}

// Load initializes configuration from defaults, an optional YAML file and environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnvWithDefault("PORT", cfg.Port)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvWithDefault("LOG_FORMAT", cfg.LogFormat)

	cfg.PythonPath = getEnvWithDefault("PYTHON_PATH", cfg.PythonPath)
	cfg.EngineScript = getEnvWithDefault("ENGINE_SCRIPT", cfg.EngineScript)
	cfg.EngineMetricsFlag = getEnvWithDefault("ENGINE_METRICS_FLAG", cfg.EngineMetricsFlag)
	cfg.EngineMode = strings.ToLower(getEnvWithDefault("ENGINE_MODE", cfg.EngineMode))
	cfg.EngineURL = getEnvWithDefault("ENGINE_URL", cfg.EngineURL)
	cfg.EngineTimeout = getEnvDurationWithDefault("ENGINE_TIMEOUT", cfg.EngineTimeout)
	cfg.EngineMaxConcurrency = getEnvIntWithDefault("ENGINE_MAX_CONCURRENCY", cfg.EngineMaxConcurrency)
	cfg.EngineRetries = getEnvIntWithDefault("ENGINE_RETRIES", cfg.EngineRetries)
	cfg.EngineRPS = getEnvIntWithDefault("ENGINE_RPS", cfg.EngineRPS)

	cfg.StorageDriver = strings.ToLower(getEnvWithDefault("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.DBHost = getEnvWithDefault("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnvWithDefault("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnvWithDefault("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnvWithDefault("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnvWithDefault("DB_NAME", cfg.DBName)
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", cfg.DBSSLMode)
	cfg.RedisAddr = getEnvWithDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnvWithDefault("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvIntWithDefault("REDIS_DB", cfg.RedisDB)

	cfg.RateLimitRPS = getEnvFloatWithDefault("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvIntWithDefault("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.PersistTimeout = getEnvDurationWithDefault("PERSIST_TIMEOUT", cfg.PersistTimeout)
	cfg.StrictFields = getEnvBoolWithDefault("STRICT_FIELDS", cfg.StrictFields)

	cfg.TelegramBotToken = getEnvWithDefault("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.TelegramOpsChatID = getEnvInt64WithDefault("TELEGRAM_OPS_CHAT_ID", cfg.TelegramOpsChatID)
}

// Validate rejects combinations the server cannot start with
func (c *Config) Validate() error {
	switch c.EngineMode {
	case EngineProcess:
		if c.PythonPath == "" {
			return fmt.Errorf("PYTHON_PATH must be set for engine mode %q", c.EngineMode)
		}
	case EngineHTTP:
		if c.EngineURL == "" {
			return fmt.Errorf("ENGINE_URL must be set for engine mode %q", c.EngineMode)
		}
	default:
		return fmt.Errorf("unknown ENGINE_MODE %q", c.EngineMode)
	}

	switch c.StorageDriver {
	case StorageMemory, StoragePostgres, StorageRedis:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.EngineTimeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be positive, got %s", c.EngineTimeout)
	}
	if c.EngineMaxConcurrency < 1 {
		return fmt.Errorf("ENGINE_MAX_CONCURRENCY must be at least 1, got %d", c.EngineMaxConcurrency)
	}
	return nil
}

// TelegramEnabled reports whether orphan alerts should go to Telegram
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramOpsChatID != 0
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer value")
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer value")
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric value")
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// Durations accept Go syntax ("30s") or a bare number of seconds
func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid duration")
	return defaultValue
}
