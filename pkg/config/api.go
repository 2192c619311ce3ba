package config

import (
	"strings"
	"time"
)

// Store backends understood by LoadAPIConfig.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

const (
	defaultPlaceImage = "https://images.pexels.com/photos/1603650/pexels-photo-1603650.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=2"
	defaultUserImage  = "https://images.pexels.com/photos/220453/pexels-photo-220453.jpeg?auto=compress&cs=tinysrgb&w=400"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string
	Addr               string
	BasePath           string
	LogLevel           string
	StoreBackend       string
	DatabaseURL        string
	SQLitePath         string
	MigrationsDir      string
	AutoMigrate        bool
	JWTSecret          string
	AccessTokenTTL     time.Duration
	RequireAuth        bool
	DefaultPlaceImage  string
	DefaultUserImage   string
	RequestTimeout     time.Duration
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// LoadAPIConfig constructs an APIConfig from environment variables and the
// optional config file.
func LoadAPIConfig() APIConfig {
	cfg := APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":5000"),
		BasePath:           strings.TrimRight(GetString("API_BASE_PATH", ""), "/"),
		LogLevel:           GetString("LOG_LEVEL", "info"),
		StoreBackend:       strings.ToLower(GetString("STORE_BACKEND", "")),
		DatabaseURL:        GetString("DATABASE_URL", ""),
		SQLitePath:         GetString("SQLITE_PATH", "placify.db"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", ""),
		AutoMigrate:        GetBool("DB_AUTO_MIGRATE", true),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:     time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute,
		RequireAuth:        GetBool("REQUIRE_AUTH", false),
		DefaultPlaceImage:  GetString("DEFAULT_PLACE_IMAGE", defaultPlaceImage),
		DefaultUserImage:   GetString("DEFAULT_USER_IMAGE", defaultUserImage),
		RequestTimeout:     time.Duration(GetInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreMemory
		if cfg.DatabaseURL != "" {
			cfg.StoreBackend = StorePostgres
		}
	}
	return cfg
}
