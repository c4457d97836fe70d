package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"banana_clicker/internal/logger"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	AppPort          string
	Store            string
	DatabaseURL      string
	JWTSecret        string
	BotToken         string
	AdminTelegramIDs []int64
	AdminBotEnabled  bool
	AllowedOrigin    string

	LogLevel string
	LogJSON  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Player action limits
	ActionRateLimit  int
	ActionRateWindow time.Duration

	// Progression
	OfflineCap              time.Duration
	SweepInterval           time.Duration
	SweepConcurrency        int
	PrestigeBaseRequirement int64
}

// Load reads configuration from the environment (.env is optional).
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		Store:         getEnv("STORE", StorePostgres),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		BotToken:      os.Getenv("BOT_TOKEN"),
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogJSON:       os.Getenv("LOG_JSON") == "true",

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		AdminBotEnabled:  os.Getenv("ADMIN_BOT_ENABLED") == "true",
		AdminTelegramIDs: parseIDs(os.Getenv("ADMIN_TELEGRAM_IDS")),

		ActionRateLimit:  getInt("ACTION_RATE_LIMIT", 600),
		ActionRateWindow: getDuration("ACTION_RATE_WINDOW", time.Minute),

		OfflineCap:              getDuration("OFFLINE_CAP", 24*time.Hour),
		SweepInterval:           getDuration("SWEEP_INTERVAL", time.Second),
		SweepConcurrency:        getInt("SWEEP_CONCURRENCY", 8),
		PrestigeBaseRequirement: int64(getInt("PRESTIGE_BASE_REQUIREMENT", 1000)),
	}

	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		logger.Fatal("STORE must be postgres or memory", "store", cfg.Store)
	}
	if cfg.Store == StorePostgres && cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	if cfg.AdminBotEnabled && cfg.BotToken == "" {
		logger.Fatal("BOT_TOKEN is required when ADMIN_BOT_ENABLED=true")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt rejects negatives, and zero unless the default itself is zero.
func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && (n > 0 || n == 0 && def == 0) {
			return n
		}
		logger.Warn("ignoring invalid integer env", "key", key, "value", v)
	}
	return def
}

// getDuration accepts Go durations ("90s") or bare seconds ("90").
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	logger.Warn("ignoring invalid duration env", "key", key, "value", v)
	return def
}

// ADMIN_TELEGRAM_IDS is comma separated
func parseIDs(raw string) []int64 {
	var ids []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsAdmin reports whether id is listed in ADMIN_TELEGRAM_IDS.
func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.AdminTelegramIDs {
		if a == id {
			return true
		}
	}
	return false
}
