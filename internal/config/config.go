// Package config loads process configuration from the environment, with an
// optional .env file layered underneath.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/quizitive/commonology-sub000/pkg/database"
)

var validate = validator.New()

type Config struct {
	HTTPAddr       string   `validate:"required"`
	AllowedOrigins []string `validate:"dive,required"`

	Database database.Config
	// DBDriver duplicates Database.Driver so it can carry a validation tag.
	DBDriver string `validate:"oneof=postgres sqlite"`

	// RedisAddr selects the Redis cache. Empty means the in-process cache.
	RedisAddr string

	TallyTTL           time.Duration `validate:"gt=0"`
	LeaderboardTTL     time.Duration `validate:"gt=0"`
	PageSize           int           `validate:"min=1,max=1000"`
	SnapshotWorkers    int           `validate:"min=1,max=64"`
	ExcludeHostAnswers bool

	LogLevel    string `validate:"oneof=debug info warn error"`
	LogEncoding string `validate:"oneof=json console"`
}

// Load reads .env when present, then the environment, and validates the
// result.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	driver := Env("DB_DRIVER", database.DriverPostgres)
	cfg := &Config{
		HTTPAddr:       Env("HTTP_ADDR", ":8080"),
		AllowedOrigins: EnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		Database: database.Config{
			Driver:     driver,
			Host:       Env("DB_HOST", "localhost"),
			Port:       Env("DB_PORT", "5432"),
			User:       Env("DB_USER", "postgres"),
			Password:   Env("DB_PASSWORD", ""),
			DBName:     Env("DB_NAME", "commonology"),
			SQLitePath: Env("SQLITE_PATH", "commonology.db"),
		},
		DBDriver:           driver,
		RedisAddr:          Env("REDIS_ADDR", ""),
		TallyTTL:           EnvDuration("TALLY_TTL", 10*time.Minute),
		LeaderboardTTL:     EnvDuration("LEADERBOARD_TTL", 24*time.Hour),
		PageSize:           EnvInt("PAGE_SIZE", 100),
		SnapshotWorkers:    EnvInt("SNAPSHOT_WORKERS", 4),
		ExcludeHostAnswers: EnvBool("EXCLUDE_HOST_ANSWERS", false),
		LogLevel:           Env("LOG_LEVEL", "info"),
		LogEncoding:        Env("LOG_ENCODING", "json"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func Env(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func EnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// EnvDuration accepts Go durations ("90s", "10m").
func EnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// EnvList splits a comma-separated value, dropping blanks.
func EnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
