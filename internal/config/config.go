package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	Env             string
	LogLevel        string
	DBPath          string
	MigrationsDir   string
	JWTSecret       string
	TokenTTL        time.Duration
	CORSOrigins     []string
	AdminEmails     []string
	RoomDomain      string
	ShutdownTimeout time.Duration
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set in the process win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DBPath:          getEnv("DB_PATH", "./data/agentdesk.db"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", ""),
		JWTSecret:       getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:        time.Duration(getEnvInt("TOKEN_TTL_HOURS", 12)) * time.Hour,
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		AdminEmails:     lower(getEnvList("ADMIN_EMAILS", nil)),
		RoomDomain:      getEnv("ROOM_DOMAIN", "meet.jit.si"),
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 15)) * time.Second,
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}

func lower(items []string) []string {
	for i, item := range items {
		items[i] = strings.ToLower(item)
	}
	return items
}
