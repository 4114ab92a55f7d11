package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"synapse-service/internal/util"
)

//go:embed sql
var migrationsFS embed.FS

// Dir returns the embedded directory holding the migrations for driver.
func Dir(driver string) (string, error) {
	switch driver {
	case "postgres", "mysql", "sqlite3":
		return "sql/" + driver, nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

func newMigrate(db *sql.DB, driver string) (*migrate.Migrate, error) {
	dir, err := Dir(driver)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}

	var target database.Driver
	switch driver {
	case "postgres":
		target, err = postgres.WithInstance(db, &postgres.Config{})
	case "mysql":
		target, err = mysql.WithInstance(db, &mysql.Config{})
	case "sqlite3":
		target, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s migration driver: %w", driver, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func Up(db *sql.DB, driver string) error {
	m, err := newMigrate(db, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}
	util.Info("Database migrations applied",
		zap.String("driver", driver),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}

// Down rolls back the most recent migration.
func Down(db *sql.DB, driver string) error {
	m, err := newMigrate(db, driver)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back migration: %w", err)
	}
	return nil
}
