package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the client core and the devstack.
type Config struct {
	Env string

	// Hosted platform surface the client talks to.
	PlatformURL string
	PlatformKey string

	// Client behavior.
	SessionPath    string
	RequestTimeout time.Duration
	ChatPollEvery  time.Duration

	// Devstack.
	DevstackPort    string
	PostgresConnStr string
	MongoURI        string
	JWTSecret       string
	StorageDir      string
	PublicBaseURL   string
}

// Load reads configuration from the environment, consulting a .env file if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Env:             getEnv("ENV", "development"),
		PlatformURL:     getEnv("PLATFORM_URL", "http://localhost:8080"),
		PlatformKey:     getEnv("PLATFORM_ANON_KEY", ""),
		SessionPath:     getEnv("SESSION_PATH", ".social_session.json"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 10*time.Second),
		ChatPollEvery:   getDuration("CHAT_POLL_INTERVAL", 2*time.Second),
		DevstackPort:    getEnv("DEVSTACK_PORT", "8080"),
		PostgresConnStr: getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:        getEnv("MONGO_URI", ""),
		JWTSecret:       getEnv("JWT_SECRET", "supersecretjwtkey"),
		StorageDir:      getEnv("STORAGE_DIR", ".devstack_storage"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
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
	return defaultValue
}
