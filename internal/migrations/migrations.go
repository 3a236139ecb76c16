package migrations

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialect selects the migration set and database driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts the driver names used in configuration.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// DatabaseURL turns a store DSN into the URL form golang-migrate expects.
func DatabaseURL(dialect Dialect, dsn string) string {
	if dialect == DialectSQLite && !strings.HasPrefix(dsn, "sqlite://") {
		return "sqlite://" + dsn
	}
	return dsn
}

// Runner applies the embedded schema migrations to one database.
type Runner struct {
	migrator *migrate.Migrate
	logger   logrus.FieldLogger
}

// NewRunner opens a dedicated migration connection to dsn.
func NewRunner(dialect Dialect, dsn string, logger logrus.FieldLogger) (*Runner, error) {
	if logger == nil {
		logger = logrus.New()
	}

	if dialect == DialectSQLite {
		path := strings.TrimPrefix(dsn, "sqlite://")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	src, err := iofs.New(files, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("open %s migrations: %w", dialect, err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", src, DatabaseURL(dialect, dsn))
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Runner{
		migrator: migrator,
		logger:   logger.WithField("dialect", dialect),
	}, nil
}

// Up applies all pending migrations. A dirty version left by a failed run is
// reported rather than forced.
func (r *Runner) Up() error {
	version, dirty, err := r.Version()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty, fix it manually before migrating", version)
	}

	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	r.logVersion()
	return nil
}

// Down rolls back every applied migration.
func (r *Runner) Down() error {
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	r.logVersion()
	return nil
}

// Version returns the applied schema version, or 0 when nothing has run.
func (r *Runner) Version() (uint, bool, error) {
	version, dirty, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get migration version: %w", err)
	}
	return version, dirty, nil
}

func (r *Runner) logVersion() {
	version, dirty, err := r.Version()
	if err != nil {
		r.logger.Warnf("read schema version: %v", err)
		return
	}
	r.logger.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("schema migrated")
}

// Close releases the migration connection.
func (r *Runner) Close() error {
	sourceErr, databaseErr := r.migrator.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if databaseErr != nil {
		return fmt.Errorf("close migration database: %w", databaseErr)
	}
	return nil
}
