package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"learnjs_backend/internal/logger"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	AppPort     string
	AppVersion  string
	Storage     string
	DatabaseURL string
	AutoMigrate bool
	JWTSecret   string
	JWTTTL      time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigins []string
	PublicURL      string

	// Rate limits
	APIRateLimit     int
	APIRateWindow    time.Duration
	AuthRateLimit    int
	AuthRateWindow   time.Duration
	SubmitRateLimit  int
	SubmitRateWindow time.Duration

	LevelCacheTTL     time.Duration
	ReconcileSchedule string

	// BcryptCost overrides the password hashing cost when set.
	BcryptCost int

	LogLevel string
	LogJSON  bool
}

// Load reads the config from env (and .env when present)
func Load() *Config {
	_ = godotenv.Load()

	storage := strings.ToLower(os.Getenv("STORAGE"))
	if storage == "" {
		storage = StoragePostgres
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" && storage != StorageMemory {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "dev"
	}

	// comma separated, e.g. http://localhost:5173,https://learnjs.dev
	var origins []string
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	schedule := os.Getenv("RECONCILE_SCHEDULE")
	if schedule == "" {
		schedule = "0 0 3 * * *"
	}

	return &Config{
		AppPort:     port,
		AppVersion:  version,
		Storage:     storage,
		DatabaseURL: dbURL,
		AutoMigrate: os.Getenv("AUTO_MIGRATE") != "false",
		JWTSecret:   jwtSecret,
		JWTTTL:      time.Duration(envInt("JWT_TTL_HOURS", 720)) * time.Hour,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		AllowedOrigins: origins,
		PublicURL:      strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),

		APIRateLimit:     envInt("API_RATE_LIMIT", 120),
		APIRateWindow:    envSeconds("API_RATE_WINDOW_SECONDS", 60),
		AuthRateLimit:    envInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:   envSeconds("AUTH_RATE_WINDOW_SECONDS", 60),
		SubmitRateLimit:  envInt("SUBMIT_RATE_LIMIT", 60),
		SubmitRateWindow: envSeconds("SUBMIT_RATE_WINDOW_SECONDS", 60),

		LevelCacheTTL:     envSeconds("LEVEL_CACHE_TTL_SECONDS", 300),
		ReconcileSchedule: schedule,

		BcryptCost: envInt("BCRYPT_COST", 0),

		LogLevel: os.Getenv("LOG_LEVEL"),
		LogJSON:  os.Getenv("LOG_FORMAT") == "json",
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}
