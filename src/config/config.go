package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	LogLevel     string
	DatabasePath string

	// Kraken API settings
	APIKey      string
	APISecret   string
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Trade cache settings
	CacheEnabled  bool
	TradeCacheTTL time.Duration

	// Serve mode settings
	Port string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// Try the current directory first, then the parent (common when running
	// from a subdirectory of the checkout).
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}
	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	}

	Cfg = &AppConfig{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabasePath:  getEnv("DATABASE_PATH", "./krakenpnl.db"),
		APIKey:        getRequiredEnv("KRAKEN_API_KEY"),
		APISecret:     getRequiredEnv("KRAKEN_SECRET_KEY"),
		APIBaseURL:    getEnv("KRAKEN_API_BASE_URL", "https://api.kraken.com"),
		HTTPTimeout:   getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		CacheEnabled:  getEnvAsBool("TRADE_CACHE_ENABLED", true),
		TradeCacheTTL: getEnvAsDuration("TRADE_CACHE_TTL", 15*time.Minute),
		Port:          getEnv("PORT", "8080"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getRequiredEnv(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set.", key)
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s: %q. Using default %s.", key, valueStr, fallback)
		return fallback
	}
	return d
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}
