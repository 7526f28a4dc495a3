package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setMemoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("APP_ENV", "")
	t.Setenv("ENV", "")
}

func TestNewDefaults(t *testing.T) {
	setMemoryEnv(t)

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "8080", c.Port)
	require.Equal(t, "memory", c.DBAdapter)
	require.Equal(t, time.Hour, c.JwtExpiration)
	require.Equal(t, 12, c.BcryptCost)
	require.Equal(t, 10_000_000, c.MaxPayloadBytes)
	require.Equal(t, []string{"/auth/signin", "/auth/signup", "/auth/signout", "/health", "/ready"}, c.PublicPaths)
	require.Equal(t, "@every 10m", c.RevocationSweepSchedule)
}

func TestNewReadsEnvironment(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRATION_MS", "1000")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("PUBLIC_PATHS", "/auth/signin, /docs/ ,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "9090", c.Port)
	require.Equal(t, "s3cret", c.JwtSecret)
	require.Equal(t, time.Second, c.JwtExpiration)
	require.Equal(t, 4, c.BcryptCost)
	require.Equal(t, []string{"/auth/signin", "/docs/"}, c.PublicPaths)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSAllowedOrigins)
}

func TestNewRejectsDefaultSecretInProduction(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := New()
	require.Error(t, err)
}

func TestNewRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"JWT_EXPIRATION_MS": "soon",
		"BCRYPT_COST":       "40",
		"PORT":              "http",
		"DB_ADAPTER":        "mongo",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			setMemoryEnv(t)
			t.Setenv(key, val)
			_, err := New()
			require.Error(t, err)
		})
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	c := &Config{PostgresHost: "db", PostgresUser: "app", PostgresDB: "users", PostgresPassword: "pw"}
	dsn, err := c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "host=db port=5432 user=app dbname=users sslmode=disable password=pw", dsn)

	c = &Config{PostgresDSN: "postgres://x"}
	dsn, err = c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "postgres://x", dsn)

	_, err = (&Config{PostgresUser: "app", PostgresDB: "users"}).BuildPostgresDSN()
	require.Error(t, err)
}
