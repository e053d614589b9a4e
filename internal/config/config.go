package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// RateLimit holds the budget for one guarded operation.
type RateLimit struct {
	Max    int
	Window time.Duration
}

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	// Token material. SecretKey signs both token kinds; the claims carry a
	// type discriminator so the validation paths stay disjoint.
	SecretKey       string
	SessionLifetime time.Duration
	MagicLinkTTL    time.Duration

	// Per-operation abuse-guard budgets. Recovery is more abuse-prone than
	// login, so it gets its own (tighter) budget.
	LoginLimit         RateLimit
	RecoverLimit       RateLimit
	RequestAccessLimit RateLimit

	RSVPDeadline   time.Time
	RSVPBaseURL    string
	SendAccessMode string // "magic" sends a magic link, "code" re-sends the guest code

	AdminAPIKey string

	EmailProvider   string // "ses", "sendgrid" or "dryrun"
	EmailFrom       string
	EmailFromName   string
	AWSRegion       string
	SendGridAPIKey  string
	EmailTimeout    time.Duration
	DefaultLanguage string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./weddingrsvp.db"),
		DatabaseURL:    getEnv("DB_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		SecretKey:       getEnv("SECRET_KEY", "dev_secret"),
		SessionLifetime: time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		MagicLinkTTL:    time.Duration(getEnvInt("MAGIC_LINK_EXPIRE_MINUTES", 15)) * time.Minute,

		LoginLimit:         getLimit("LOGIN_RL", 5, 60*time.Second),
		RecoverLimit:       getLimit("RECOVER_RL", 3, 120*time.Second),
		RequestAccessLimit: getLimit("REQUEST_RL", 3, 120*time.Second),

		RSVPDeadline:   getEnvDate("RSVP_DEADLINE", time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)),
		RSVPBaseURL:    getEnv("RSVP_URL", "http://localhost:8080"),
		SendAccessMode: getEnv("SEND_ACCESS_MODE", "magic"),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		EmailProvider:   getEnv("EMAIL_PROVIDER", "dryrun"),
		EmailFrom:       getEnv("EMAIL_FROM", ""),
		EmailFromName:   getEnv("EMAIL_SENDER_NAME", ""),
		AWSRegion:       getEnv("AWS_REGION", "eu-west-1"),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		EmailTimeout:    time.Duration(getEnvInt("EMAIL_TIMEOUT_SECONDS", 10)) * time.Second,
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "es"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getLimit reads {prefix}_MAX and {prefix}_WINDOW (seconds).
func getLimit(prefix string, defaultMax int, defaultWindow time.Duration) RateLimit {
	windowSec := getEnvInt(prefix+"_WINDOW", int(defaultWindow/time.Second))
	return RateLimit{
		Max:    getEnvInt(prefix+"_MAX", defaultMax),
		Window: time.Duration(windowSec) * time.Second,
	}
}

// getEnvDate parses an ISO date (YYYY-MM-DD); invalid values fall back to the default.
func getEnvDate(key string, defaultValue time.Time) time.Time {
	if value := os.Getenv(key); value != "" {
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return t
		}
	}
	return defaultValue
}
