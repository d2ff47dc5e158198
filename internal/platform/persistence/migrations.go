package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations brings the ledger schema up to the newest version found under
// migrationsPath. A dirty schema is reported rather than forced.
func RunMigrations(log *slog.Logger, databaseURL, migrationsPath string) error {
	source, err := migrationSource(migrationsPath)
	if err != nil {
		return err
	}
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn("Failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("No migrations applied", "source", source)
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case dirty:
		return fmt.Errorf("schema version %d is dirty", version)
	default:
		log.Info("Schema up to date", "version", version)
	}
	return nil
}

// migrationSource accepts a bare directory or a file:// URL
func migrationSource(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "file://" {
		return "", errors.New("migrations path cannot be empty")
	}
	if strings.HasPrefix(path, "file://") {
		return path, nil
	}
	return "file://" + path, nil
}
