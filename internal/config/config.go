package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config carries everything the bot reads from the environment.
type Config struct {
	// Token is the Discord bot token, without the "Bot " prefix.
	Token string
	// DBPath is the sqlite database file.
	DBPath string
	// Prefix is the default command prefix, used until a guild sets its
	// own.
	Prefix string

	// PointsScale is the number of idle seconds per scoring unit.
	PointsScale int64
	// FlushInterval is how long dirty records may sit in the write
	// buffer before the next trigger flushes them.
	FlushInterval time.Duration
	// FlushTimeout bounds each bulk write to the database.
	FlushTimeout time.Duration
	// BackgroundFlush enables a periodic flush independent of user
	// activity. Without it, dirty records only flush as a side effect of
	// later actions.
	BackgroundFlush bool

	LogLevel zerolog.Level
}

// FromEnv loads the configuration from the environment. A .env file in
// the working directory is honoured if present.
func FromEnv() (Config, error) {
	godotenv.Load()

	cfg := Config{
		Token:           os.Getenv("BOT_TOKEN"),
		DBPath:          envDefault("DB_PATH", "gooutside.db"),
		Prefix:          envDefault("BOT_PREFIX", "!!!"),
		PointsScale:     1,
		FlushInterval:   time.Minute,
		FlushTimeout:    10 * time.Second,
		BackgroundFlush: true,
		LogLevel:        zerolog.InfoLevel,
	}
	if cfg.Token == "" {
		return Config{}, fmt.Errorf("BOT_TOKEN is not set")
	}

	var err error
	if cfg.PointsScale, err = envInt64("POINTS_SCALE", cfg.PointsScale); err != nil {
		return Config{}, err
	}
	if cfg.PointsScale < 1 {
		return Config{}, fmt.Errorf("POINTS_SCALE must be at least 1")
	}
	if cfg.FlushInterval, err = envDuration("FLUSH_INTERVAL", cfg.FlushInterval); err != nil {
		return Config{}, err
	}
	if cfg.FlushTimeout, err = envDuration("FLUSH_TIMEOUT", cfg.FlushTimeout); err != nil {
		return Config{}, err
	}
	if cfg.BackgroundFlush, err = envBool("BACKGROUND_FLUSH", cfg.BackgroundFlush); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := zerolog.ParseLevel(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parsing LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt64(key string, fallback int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return value, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return value, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return value, nil
}
