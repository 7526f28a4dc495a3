package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/example/userauth/internal/config"
	"github.com/example/userauth/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so that deferred cleanup always happens.
func run(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	var (
		command = fs.String("command", "up", "Migration command: up, down, version, force")
		steps   = fs.Int("steps", 0, "Number of migration steps (for up/down)")
		version = fs.Uint("version", 0, "Target version (for force command)")
		dir     = fs.String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.New()
	if err != nil {
		logging.New("userauth-migrate", "info").Errorf("config error: %v", err)
		return 1
	}
	logger := logging.New("userauth-migrate", cfg.LogLevel)

	if cfg.DBAdapter != "postgres" {
		logger.Errorf("migrations only work with PostgreSQL, current adapter: %s", cfg.DBAdapter)
		return 1
	}

	migrationsDir := cfg.MigrationsDir
	if *dir != "" {
		migrationsDir = *dir
	}

	m, closeDB, err := open(migrationsDir, cfg.PostgresDSN)
	if err != nil {
		logger.Errorf("open: %v", err)
		return 1
	}
	defer closeDB()

	switch *command {
	case "up":
		if err := step(m, true, *steps); err != nil {
			logger.Errorf("migration up failed: %v", err)
			return 1
		}
		logger.Info("migrations applied successfully")
	case "down":
		if err := step(m, false, *steps); err != nil {
			logger.Errorf("migration down failed: %v", err)
			return 1
		}
		logger.Info("migrations rolled back successfully")
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			v, dirty, err = 0, false, nil
		}
		if err != nil {
			logger.Errorf("failed to get version: %v", err)
			return 1
		}
		if dirty {
			logger.Errorf("database is in a dirty state (version %d)", v)
			return 1
		}
		fmt.Printf("Current migration version: %d\n", v)
	case "force":
		if *version == 0 {
			logger.Error("version required for force command (use -version flag)")
			return 2
		}
		if err := m.Force(int(*version)); err != nil {
			logger.Errorf("force migration failed: %v", err)
			return 1
		}
		logger.WithField("version", *version).Info("forced database version")
	default:
		logger.Errorf("unknown command: %s (supported: up, down, version, force)", *command)
		return 2
	}
	return 0
}

func open(migrationsDir, dsn string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, func() { db.Close() }, nil
}

func step(m *migrate.Migrate, up bool, steps int) error {
	var err error
	switch {
	case steps > 0 && up:
		err = m.Steps(steps)
	case steps > 0:
		err = m.Steps(-steps)
	case up:
		err = m.Up()
	default:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
