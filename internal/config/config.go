package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	SQLitePath    string
	MigrationsDir string

	// Authorization
	JWTSecret          string
	PipelineAPIKeyHash string
	// AllowedPrincipals restricts API access to these token subjects; empty
	// admits every verified subject.
	AllowedPrincipals []string

	// Import
	MaxUploadMB      int64
	CategorySeedFile string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "finbook"),
		DBPassword:    getEnv("DB_PASSWORD", "finbook"),
		DBName:        getEnv("DB_NAME", "finbook"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		SQLitePath:    getEnv("SQLITE_PATH", "finbook.db"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),

		// Authorization
		JWTSecret:          getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		PipelineAPIKeyHash: getEnv("PIPELINE_API_KEY_HASH", ""),
		AllowedPrincipals:  splitList(getEnv("ALLOWED_PRINCIPALS", "")),

		// Import
		CategorySeedFile: getEnv("CATEGORY_SEED_FILE", ""),
	}

	maxUpload := getEnv("MAX_UPLOAD_MB", "10")
	mb, err := strconv.ParseInt(maxUpload, 10, 64)
	if err != nil || mb <= 0 {
		log.Printf("Warning: invalid MAX_UPLOAD_MB value '%s', falling back to 10\n", maxUpload)
		mb = 10
	}
	config.MaxUploadMB = mb

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma separated value, dropping empty entries.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
