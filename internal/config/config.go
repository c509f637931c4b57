package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"duel-tracker/internal/constants"
)

type Config struct {
	DBPath           string
	ServerPort       string
	AdminToken       string
	LogLevel         string
	MaintenanceTick  time.Duration
	MonthlyResetHour int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:           getEnv("DB_PATH", "duels.db"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		AdminToken:       getEnv("ADMIN_TOKEN", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MaintenanceTick:  getEnvDuration("MAINTENANCE_TICK", constants.DefaultMaintenanceTick),
		MonthlyResetHour: getEnvInt("MONTHLY_RESET_HOUR", constants.MonthlyResetHour),
	}

	if cfg.AdminToken == "" {
		logger.Warn().Msg("ADMIN_TOKEN not set, admin endpoints disabled")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("maintenance_tick", cfg.MaintenanceTick).
		Int("monthly_reset_hour", cfg.MonthlyResetHour).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
