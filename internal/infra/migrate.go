package infra

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

type driverFactory func(conn *sql.DB) (database.Driver, error)

// runMigrations applies the files under migrations/<source> to conn. An
// already up to date schema is not an error.
func runMigrations(conn *sql.DB, source, dbName string, newDriver driverFactory, direction Direction) error {
	driver, err := newDriver(conn)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s migration driver", source)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://migrations/%s", source), dbName, driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrations instance")
	}

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return errors.Errorf("unknown migration direction %q", direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrapf(err, "failed to migrate %s %s", source, direction)
	}
	return nil
}
