package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrationState is the schema version after a migration run.
type MigrationState struct {
	Version uint
	Dirty   bool
	// Changed is false when the schema was already at the requested version.
	Changed bool
}

// Migrate applies the SQL migrations in dir to the database at dsn. steps
// limits how many migrations run; 0 runs all of them.
//
// Precondition: dir must contain golang-migrate NNN_name.{up,down}.sql files.
// Postcondition: returns the resulting version, or a non-nil error.
func Migrate(dsn, dir string, direction Direction, steps int) (MigrationState, error) {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return MigrationState{}, fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch direction {
	case Up:
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case Down:
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		return MigrationState{}, fmt.Errorf("invalid direction %q: must be 'up' or 'down'", direction)
	}

	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed, err = false, nil
	}
	if err != nil {
		return MigrationState{}, fmt.Errorf("migrating %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationState{}, fmt.Errorf("reading schema version: %w", err)
	}
	return MigrationState{Version: version, Dirty: dirty, Changed: changed}, nil
}
