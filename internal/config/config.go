package config

import (
	"os"
	"strconv"
	"time"

	"todo_webapp/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	AppVersion  string
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisEventsChannel string

	LogLevel string
	LogJSON  bool

	AllowedOrigin string

	// Tasks
	TasksPageSize int
	SeedDefaults  bool
	AdminEmail    string
	AdminPassword string

	// Rate limits, requests per window
	APIRateLimit       int
	APIRateWindow      time.Duration
	AuthRateLimit      int
	AuthRateWindow     time.Duration
	MutationRateLimit  int
	MutationRateWindow time.Duration
}

// Load reads the config from env, a .env file is used when present.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	cfg := &Config{
		AppPort:            getString("APP_PORT", "8080"),
		AppVersion:         getString("APP_VERSION", "dev"),
		DatabaseURL:        dbURL,
		JWTSecret:          jwtSecret,
		JWTTTL:             time.Duration(getInt("JWT_TTL_HOURS", 24)) * time.Hour,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getInt("REDIS_DB", 0),
		RedisEventsChannel: getString("REDIS_EVENTS_CHANNEL", "tasks:events"),
		LogLevel:           getString("LOG_LEVEL", "info"),
		LogJSON:            os.Getenv("LOG_JSON") == "true",
		AllowedOrigin:      os.Getenv("ALLOWED_ORIGIN"),
		TasksPageSize:      getInt("TASKS_PAGE_SIZE", 4),
		SeedDefaults:       getString("SEED_DEFAULTS", "true") == "true",
		AdminEmail:         getString("ADMIN_EMAIL", "admin@todo.local"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		APIRateLimit:       getInt("API_RATE_LIMIT", 120),
		APIRateWindow:      time.Duration(getInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		AuthRateLimit:      getInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:     time.Duration(getInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
		MutationRateLimit:  getInt("MUTATION_RATE_LIMIT", 60),
		MutationRateWindow: time.Duration(getInt("MUTATION_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}

	if cfg.TasksPageSize > 100 {
		cfg.TasksPageSize = 100
	}
	if cfg.SeedDefaults && cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD is not set, default admin will not be created")
	}
	return cfg
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt returns def when the variable is unset or not a positive integer.
func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Warn("invalid integer in env, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}
