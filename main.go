package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	cfg "github.com/example/userauth/internal/config"
	"github.com/example/userauth/internal/credential"
	"github.com/example/userauth/internal/gate"
	"github.com/example/userauth/internal/logging"
	"github.com/example/userauth/internal/policy"
	"github.com/example/userauth/internal/revocation"
	"github.com/example/userauth/internal/token"
)

const appName = "userauth"

type App struct {
	DB       DB
	Config   *cfg.Config
	Logger   *logrus.Logger
	Verifier *credential.Verifier
	Gate     *gate.Gate
	Revoked  *revocation.Store
	Codec    *token.Codec

	rateLimiter *RateLimiter
}

// NewApp wires the authentication core on top of db. opts are passed to the token codec.
func NewApp(c *cfg.Config, db DB, logger *logrus.Logger, opts ...token.Option) (*App, error) {
	codec, err := token.NewCodec([]byte(c.JwtSecret), c.JwtExpiration, opts...)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	revoked := revocation.NewStore(codec.ExpiresAt)
	verifier, err := credential.NewVerifier(db, credential.BcryptHasher{Cost: c.BcryptCost}, codec, c.MaxPayloadBytes)
	if err != nil {
		return nil, fmt.Errorf("credential verifier: %w", err)
	}
	return &App{
		DB:          db,
		Config:      c,
		Logger:      logger,
		Verifier:    verifier,
		Gate:        gate.New(codec, revoked, c.PublicPaths, logger),
		Revoked:     revoked,
		Codec:       codec,
		rateLimiter: NewRateLimiter(c.RateLimitPerMinute),
	}, nil
}

// Router returns the full HTTP surface, CORS included.
func (a *App) Router() http.Handler {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(SecurityHeaders)
	r.Use(a.Logging)
	r.Use(a.Gate.Middleware)

	r.HandleFunc("/health", a.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", a.HandleReady).Methods(http.MethodGet)

	auth := r.PathPrefix("/auth").Subrouter()
	auth.Use(a.RateLimit)
	auth.HandleFunc("/signup", a.HandleSignUp).Methods(http.MethodPost)
	auth.HandleFunc("/signin", a.HandleSignIn).Methods(http.MethodPost)
	auth.HandleFunc("/signout", a.HandleSignOut).Methods(http.MethodPost)

	users := policy.Require(policy.Roles(token.RoleUser, token.RoleAdmin))
	r.Handle("/api/users", users(http.HandlerFunc(a.HandleListUsers))).Methods(http.MethodGet)
	r.Handle("/api/users/{id}", users(http.HandlerFunc(a.HandleGetUser))).Methods(http.MethodGet)
	r.Handle("/api/users/{id}", users(http.HandlerFunc(a.HandleUpdateUser))).Methods(http.MethodPut)
	r.Handle("/api/users/{id}", users(http.HandlerFunc(a.HandleDeleteUser))).Methods(http.MethodDelete)

	return CORS(a.Config.CORSAllowedOrigins, r)
}

func openDB(c *cfg.Config, logger *logrus.Logger) (DB, error) {
	switch c.DBAdapter {
	case "sqlite":
		logger.WithField("file", c.SQLiteFile).Info("using SQLite database")
		return NewSQLiteDB(c.SQLiteFile)
	case "postgres":
		logger.Info("applying database migrations")
		if err := ApplyMigrations(c.MigrationsDir, c.PostgresDSN, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		p, err := NewPostgresDB(c.PostgresDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to PostgreSQL database")
		return p, nil
	case "memory":
		logger.Warn("using in-memory database (not recommended for production)")
		return NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
	}
}

func main() {
	c, err := cfg.New()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logging.New(appName, c.LogLevel)

	db, err := openDB(c, logger)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}

	app, err := NewApp(c, db, logger)
	if err != nil {
		logger.Fatalf("init: %v", err)
	}

	sweeper, err := revocation.NewSweeper(app.Revoked, c.RevocationSweepSchedule, logger)
	if err != nil {
		logger.Fatalf("revocation sweeper: %v", err)
	}
	sweeper.Start()

	srv := &http.Server{Handler: app.Router(), Addr: ":" + c.Port, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		logger.WithField("port", c.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown failed: %+v", err)
	}
	sweeper.Stop()
	if err := app.DB.Close(); err != nil {
		logger.WithError(err).Warn("closing database")
	}
	logger.Info("server exited properly")
}
