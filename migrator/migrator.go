// Package migrator applies the announcer schema with golang-migrate.
package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/coregx/announcer"
)

// Drivers lists the supported database drivers.
var Drivers = []string{"sqlite3", "postgres", "mysql"}

// Up applies all pending migrations for the driver ("sqlite3", "postgres"
// or "mysql"). Being up to date is not an error. The database handle is
// left open.
func Up(db *sql.DB, driverName string) error {
	m, release, err := newMigrate(db, driverName)
	if err != nil {
		return err
	}
	defer release()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Down rolls back every migration.
func Down(db *sql.DB, driverName string) error {
	m, release, err := newMigrate(db, driverName)
	if err != nil {
		return err
	}
	defer release()
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}

// Version returns the applied schema version; 0 when none is applied.
func Version(db *sql.DB, driverName string) (uint, bool, error) {
	m, release, err := newMigrate(db, driverName)
	if err != nil {
		return 0, false, err
	}
	defer release()
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

// newMigrate builds a migrate instance over an existing handle. The
// returned release func gives back what the instance holds without
// closing db.
//
// PostgreSQL and MySQL migrations run on a connection checked out of db's
// pool; release returns it. SQLite keeps no connection of its own, and
// closing its driver would close db, so its release does nothing.
func newMigrate(db *sql.DB, driverName string) (*migrate.Migrate, func(), error) {
	var (
		driver database.Driver
		conn   *sql.Conn
		err    error
	)
	switch driverName {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case "postgres", "mysql":
		ctx := context.Background()
		conn, err = db.Conn(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get %s connection: %w", driverName, err)
		}
		if driverName == "postgres" {
			driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		} else {
			driver, err = mysql.WithConnection(ctx, conn, &mysql.Config{})
		}
	default:
		return nil, nil, fmt.Errorf("unsupported driver: %s", driverName)
	}
	if err != nil {
		closeConn(conn)
		return nil, nil, fmt.Errorf("failed to create %s migration driver: %w", driverName, err)
	}

	source, err := iofs.New(announcer.MigrationFiles, "migrations/"+driverName)
	if err != nil {
		closeConn(conn)
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		closeConn(conn)
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	release := func() {}
	if conn != nil {
		// The driver was built from conn alone, so closing it leaves db open.
		release = func() { _, _ = m.Close() }
	}
	return m, release, nil
}

func closeConn(conn *sql.Conn) {
	if conn != nil {
		_ = conn.Close()
	}
}
