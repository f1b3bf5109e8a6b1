package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DBConfig holds the database connection settings.
type DBConfig struct {
	URL string
}

// RabbitMQConfig holds the queue settings. An empty URL disables the
// queue and jobs run in-process.
type RabbitMQConfig struct {
	URL       string
	QueueName string
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// SourceConfig configures one listing source.
type SourceConfig struct {
	BaseURL    string
	CrawlDelay time.Duration
}

// ScrapersConfig holds the per-source overrides. Zero values mean the
// source's built-in defaults.
type ScrapersConfig struct {
	Akiya      SourceConfig
	Suumo      SourceConfig
	Homes      SourceConfig
	Athome     SourceConfig
	BitAuction SourceConfig
}

// HazardConfig holds the external hazard provider settings.
type HazardConfig struct {
	JShisBaseURL     string
	HazardMapBaseURL string
	ReinfolibBaseURL string
	ReinfolibAPIKey  string
}

// SchedulerConfig tunes the job manager.
type SchedulerConfig struct {
	WorkerCount      int
	ScheduleInterval time.Duration
	StaleJobTimeout  time.Duration
}

// AppConfig is the whole application configuration.
type AppConfig struct {
	AppName      string
	HTTPPort     string
	Database     DBConfig
	RabbitMQ     RabbitMQConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
	Scrapers     ScrapersConfig
	Hazard       HazardConfig
	Scheduler    SchedulerConfig
}

// LoadConfig loads the configuration from environment variables, reading
// an optional .env file first. A missing .env file is not an error; the
// process environment alone can carry everything.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: Could not load .env file (path: %v): %v. Using process environment.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "akiya-radar")
	cfg.HTTPPort = getEnvAsString("HTTP_PORT", "8080")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
	cfg.RabbitMQ.QueueName = getEnvAsString("RABBITMQ_JOB_QUEUE", "scrape-jobs")

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}
	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	cfg.Scrapers = ScrapersConfig{
		Akiya:      loadSourceConfig("AKIYA"),
		Suumo:      loadSourceConfig("SUUMO"),
		Homes:      loadSourceConfig("HOMES"),
		Athome:     loadSourceConfig("ATHOME"),
		BitAuction: loadSourceConfig("BIT"),
	}

	cfg.Hazard.JShisBaseURL = os.Getenv("JSHIS_BASE_URL")
	cfg.Hazard.HazardMapBaseURL = os.Getenv("HAZARDMAP_BASE_URL")
	cfg.Hazard.ReinfolibBaseURL = os.Getenv("REINFOLIB_BASE_URL")
	cfg.Hazard.ReinfolibAPIKey = os.Getenv("REINFOLIB_API_KEY")

	cfg.Scheduler.WorkerCount = getEnvAsInt("SCHEDULER_WORKERS", 2)
	cfg.Scheduler.ScheduleInterval = time.Duration(getEnvAsInt("SCHEDULER_INTERVAL_MINUTES", 60)) * time.Minute
	cfg.Scheduler.StaleJobTimeout = time.Duration(getEnvAsInt("SCHEDULER_STALE_JOB_MINUTES", 120)) * time.Minute

	return cfg, nil
}

func loadSourceConfig(prefix string) SourceConfig {
	return SourceConfig{
		BaseURL:    os.Getenv(prefix + "_BASE_URL"),
		CrawlDelay: time.Duration(getEnvAsInt(prefix+"_CRAWL_DELAY_SECONDS", 0)) * time.Second,
	}
}

// getEnvAsString reads an environment variable as a string or returns the default.
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as an int or returns the default.
// Logs when the variable exists but cannot be parsed.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

// getEnvAsBool reads an environment variable as a bool or returns the default.
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}
