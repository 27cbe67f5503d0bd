package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	AppEnv  string
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	LogFile string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ContentAPIBaseURL string
	ContentAPISecret  string
	ContentAPITimeout time.Duration
	ContentCacheTTL   time.Duration

	RatingQueueName string
	LeaderboardKey  string

	CORSAllowedOrigins []string
	SubmitRateLimit    int // requests per minute per client IP
}

// Load reads an optional .env file and then the process environment.
// It reports whether a .env file was found so the caller can log it.
func Load() (*Config, bool) {
	envFileLoaded := godotenv.Load() == nil

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		APIPort:            getEnv("API_PORT", "8080"),
		JWTKey:             []byte(getEnv("JWT_SECRET", defaultJWTSecret)),
		JWTExp:             time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		LogFile:            getEnv("LOG_FILE", ""),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "user"),
		DBPassword:         getEnv("DB_PASSWORD", "password"),
		DBName:             getEnv("DB_NAME", "problem_database"),
		DBSslMode:          getEnv("DB_SSLMODE", "disable"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		ContentAPIBaseURL:  strings.TrimRight(getEnv("CONTENT_API_BASE_URL", "http://localhost:3001"), "/"),
		ContentAPISecret:   getEnv("CONTENT_API_SECRET", ""),
		ContentAPITimeout:  getEnvAsDuration("CONTENT_API_TIMEOUT", 5*time.Second),
		ContentCacheTTL:    getEnvAsDuration("CONTENT_CACHE_TTL", 10*time.Minute),
		RatingQueueName:    getEnv("RATING_QUEUE_NAME", "rating_events_queue"),
		LeaderboardKey:     getEnv("LEADERBOARD_KEY", "leaderboard:rating"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		SubmitRateLimit:    getEnvAsInt("SUBMIT_RATE_LIMIT", 30),
	}

	cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	return cfg, envFileLoaded
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate rejects settings that are only acceptable outside production.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if len(c.JWTKey) == 0 || string(c.JWTKey) == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
