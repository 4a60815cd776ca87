package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/MetaboScope/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationState is the schema version recorded in the database.
type MigrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m      *migrate.Migrate
	logger logging.Logger
}

// NewMigrator prepares a Migrator on its own connection to dsn.
func NewMigrator(dsn string, logger logging.Logger) (*Migrator, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMigrationFailed, "failed to open embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMigrationFailed, "failed to create migrate instance")
	}
	return &Migrator{m: m, logger: logger}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Up / Down / Status
// ─────────────────────────────────────────────────────────────────────────────

// Up applies every pending migration. No pending migrations is not an error.
func (g *Migrator) Up() error {
	if err := g.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		state, _ := g.Status()
		return apperrors.Wrap(err, apperrors.ErrCodeMigrationFailed,
			fmt.Sprintf("failed to run migrations (current version: %d)", state.Version))
	}
	state, err := g.Status()
	if err != nil {
		g.logger.Warn("failed to read migration version", logging.Err(err))
		return nil
	}
	g.logger.Info("database migrations completed",
		logging.Int64("version", int64(state.Version)),
		logging.Bool("dirty", state.Dirty),
	)
	return nil
}

// Down rolls back steps migrations.
func (g *Migrator) Down(steps int) error {
	if steps <= 0 {
		return apperrors.Newf(apperrors.ErrCodeBadRequest, "steps must be greater than 0, got %d", steps)
	}
	if err := g.m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return apperrors.New(apperrors.ErrCodeMigrationFailed, "no migrations to roll back")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeMigrationFailed, fmt.Sprintf("failed to roll back %d step(s)", steps))
	}
	return nil
}

// Status reports the applied version. A fresh database reports version 0.
func (g *Migrator) Status() (MigrationState, error) {
	version, dirty, err := g.m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return MigrationState{}, nil
		}
		return MigrationState{}, apperrors.Wrap(err, apperrors.ErrCodeMigrationFailed, "failed to get migration version")
	}
	return MigrationState{Version: version, Dirty: dirty}, nil
}

// Force marks version as applied without running it, for recovering a
// dirty schema.
func (g *Migrator) Force(version int) error {
	if err := g.m.Force(version); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeMigrationFailed, fmt.Sprintf("failed to force version %d", version))
	}
	return nil
}

// Close releases the migration source and connection.
func (g *Migrator) Close() error {
	srcErr, dbErr := g.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
