package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	AuthHMACSecret  string
	AuthTokenTTL    time.Duration
	EnableLocalAuth bool

	CORSOrigins []string

	// Optional catalog cache; disabled when RedisAddr is empty.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	// Optional attempt event fan-out; disabled when AMQPURL is empty.
	AMQPURL   string
	AMQPQueue string

	// Bootstrap admin used by `quizctl create-admin`.
	AdminEmail    string
	AdminPassword string
}

// LoadDotEnv loads a .env file when present. Real environment variables win.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[config] .env not loaded: %v", err)
		}
	}
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	defOrigins := "http://localhost:3000"
	if mode == ModeOnline {
		defOrigins = "https://quiz.mindengage.ai"
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		SiteID:   envOr("SITE_ID", "local"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthHMACSecret:  envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AuthTokenTTL:    envDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),

		CORSOrigins: csvOr("CORS_ORIGINS", defOrigins),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		CatalogCacheTTL: envDuration("CATALOG_CACHE_TTL", 5*time.Minute),

		AMQPURL:   os.Getenv("AMQP_URL"),
		AMQPQueue: envOr("AMQP_QUEUE", "quiz.attempts"),

		AdminEmail:    envOr("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}
func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
