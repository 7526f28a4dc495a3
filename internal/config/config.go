package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	DBAdapter     string
	SQLiteFile    string
	MigrationsDir string
	LogLevel      string
	Env           string

	JwtSecret     string
	JwtExpiration time.Duration
	BcryptCost    int

	MaxPayloadBytes         int
	PublicPaths             []string
	CORSAllowedOrigins      []string
	RateLimitPerMinute      int
	RevocationSweepSchedule string

	// PostgreSQL connection settings
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

const defaultJwtSecret = "change-me"

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}
	switch {
	case c.PostgresHost == "":
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	case c.PostgresUser == "":
		return "", errors.New("POSTGRES_USER must be set")
	case c.PostgresDB == "":
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}
	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)
	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}
	return dsn, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_ADAPTER", "postgres")
	v.SetDefault("SQLITE_FILE", "./data/userauth.db")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", defaultJwtSecret)
	v.SetDefault("JWT_EXPIRATION_MS", 3600000)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MAX_PAYLOAD_BYTES", 10_000_000)
	v.SetDefault("PUBLIC_PATHS", "/auth/signin,/auth/signup,/auth/signout,/health,/ready")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("REVOCATION_SWEEP_SCHEDULE", "@every 10m")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	return v
}

// firstOf returns the first non-empty value among keys, or def.
func firstOf(v *viper.Viper, def string, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.GetString(k)); s != "" {
			return s
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func New() (*Config, error) {
	v := newViper()

	c := &Config{
		Port:          v.GetString("PORT"),
		DBAdapter:     strings.ToLower(v.GetString("DB_ADAPTER")),
		SQLiteFile:    v.GetString("SQLITE_FILE"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		Env:           strings.ToLower(firstOf(v, "", "APP_ENV", "ENV")),

		JwtSecret:  v.GetString("JWT_SECRET"),
		BcryptCost: v.GetInt("BCRYPT_COST"),

		MaxPayloadBytes:         v.GetInt("MAX_PAYLOAD_BYTES"),
		PublicPaths:             splitList(v.GetString("PUBLIC_PATHS")),
		CORSAllowedOrigins:      splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMinute:      v.GetInt("RATE_LIMIT_PER_MINUTE"),
		RevocationSweepSchedule: v.GetString("REVOCATION_SWEEP_SCHEDULE"),

		PostgresDSN:      firstOf(v, "", "POSTGRES_DSN"),
		PostgresHost:     firstOf(v, "localhost", "POSTGRES_HOST", "DB_HOST"),
		PostgresPort:     firstOf(v, "5432", "POSTGRES_PORT", "DB_PORT"),
		PostgresUser:     firstOf(v, "userauth", "POSTGRES_USER", "DB_USER"),
		PostgresPassword: firstOf(v, "", "POSTGRES_PASSWORD", "DB_PASSWORD"),
		PostgresDB:       firstOf(v, "userauth", "POSTGRES_DB", "DB_NAME"),
		PostgresSSLMode:  firstOf(v, "disable", "POSTGRES_SSLMODE", "DB_SSLMODE"),
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(v.GetString("JWT_EXPIRATION_MS")), 10, 64)
	if err != nil || ms <= 0 {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MS: %q", v.GetString("JWT_EXPIRATION_MS"))
	}
	c.JwtExpiration = time.Duration(ms) * time.Millisecond

	switch c.DBAdapter {
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	case "sqlite":
		if c.SQLiteFile == "" {
			return nil, errors.New("SQLITE_FILE must be set when DB_ADAPTER=sqlite")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
	}

	if c.Env == "production" || c.Env == "prod" {
		if c.JwtSecret == "" || c.JwtSecret == defaultJwtSecret {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
	}
	if c.JwtSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.MaxPayloadBytes <= 0 {
		return nil, fmt.Errorf("invalid MAX_PAYLOAD_BYTES: %d", c.MaxPayloadBytes)
	}
	if c.RateLimitPerMinute < 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %d", c.RateLimitPerMinute)
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}

	return c, nil
}
